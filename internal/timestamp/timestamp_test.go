package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDateDecodesKnownForms(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.True(t, ToDate(want).Equal(want))
	assert.True(t, ToDate(&want).Equal(want))
	assert.True(t, ToDate(want.Format(time.RFC3339)).Equal(want))
	assert.True(t, ToDate(want.UnixMilli()).Equal(want))
	assert.True(t, ToDate(float64(want.UnixMilli())).Equal(want))
}

func TestToDateFallsBackToNow(t *testing.T) {
	before := time.Now()
	got := ToDate(nil)
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))

	assert.False(t, ToDate("not-a-date").IsZero())
}

func TestToOptionalDateKeepsAbsence(t *testing.T) {
	assert.Nil(t, ToOptionalDate(nil))
	assert.Nil(t, ToOptionalDate("garbage"))
	assert.Nil(t, ToOptionalDate((*time.Time)(nil)))

	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := ToOptionalDate(want.Format(time.RFC3339Nano))
	require.NotNil(t, got)
	assert.True(t, got.Equal(want))
}

func TestToServerValue(t *testing.T) {
	assert.Nil(t, ToServerValue(nil))

	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, want, ToServerValue(&want))
}

func TestMillisecondRoundTrip(t *testing.T) {
	orig := time.Date(2026, 3, 14, 9, 26, 53, 123000000, time.UTC)

	got := ToOptionalDate(orig.UnixMilli())
	require.NotNil(t, got)
	assert.Equal(t, orig.UnixMilli(), got.UnixMilli(), "millisecond precision survives the round trip")
}
