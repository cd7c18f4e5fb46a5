// Package timestamp converts between the document store's timestamp
// representations and application time values. Remote documents can be
// partially written, so a field may arrive as a time.Time, an RFC3339 string,
// unix milliseconds, or be missing entirely.
package timestamp

import "time"

// ToDate decodes a required date field. Unrecognized or missing input falls
// back to now, which is only correct for fields that mean "just happened".
// Optional fields must go through ToOptionalDate instead.
func ToDate(v any) time.Time {
	if t, ok := decode(v); ok {
		return t
	}
	return time.Now()
}

// ToOptionalDate decodes a genuinely optional date field. Absence stays
// absence: a nil or undecodable value maps to nil, never to now.
func ToOptionalDate(v any) *time.Time {
	if t, ok := decode(v); ok {
		return &t
	}
	return nil
}

// ToServerValue encodes an optional date for the store. A nil date is written
// as an explicit null so the remote copy records the absence.
func ToServerValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func decode(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return tv, true
	case *time.Time:
		if tv == nil {
			return time.Time{}, false
		}
		return *tv, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, tv); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, tv); err == nil {
			return t, true
		}
		return time.Time{}, false
	case int64:
		return time.UnixMilli(tv), true
	case float64:
		return time.UnixMilli(int64(tv)), true
	default:
		return time.Time{}, false
	}
}
