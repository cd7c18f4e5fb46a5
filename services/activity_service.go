package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"declutterAPI/internal/docstore"
	"declutterAPI/internal/types/activity"
)

// ActivityService is the append-only action log. Entries are never updated
// or deleted by the normal flow; the read path only aggregates.
type ActivityService struct {
	store docstore.Store
}

func NewActivityService(store docstore.Store) *ActivityService {
	return &ActivityService{store: store}
}

// Record appends one entry. Silent no-op when the backend is unconfigured.
func (s *ActivityService) Record(ctx context.Context, uid string, entryType activity.EntryType, data map[string]any) *activity.Entry {
	entry := activity.Entry{
		ID:        uuid.New().String(),
		Type:      entryType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	path := activitiesCollection(uid) + "/" + entry.ID
	if err := s.store.Set(ctx, path, entry); err != nil {
		if !errors.Is(err, docstore.ErrDisabled) {
			log.Printf("Record: activity write failed for %s: %v", uid, err)
		}
		return nil
	}
	return &entry
}

// Weekly aggregates the last seven days of activity by day of week, oldest
// day first, ending today.
func (s *ActivityService) Weekly(ctx context.Context, uid string, now time.Time) (*activity.WeeklyActivity, error) {
	since := now.AddDate(0, 0, -6).Truncate(24 * time.Hour)
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: activitiesCollection(uid),
		Filters:    []docstore.Filter{{Field: "timestamp", Op: ">=", Value: since}},
		OrderBy:    "timestamp",
	})
	if err != nil {
		if errors.Is(err, docstore.ErrDisabled) {
			return emptyWeek(now), nil
		}
		return nil, err
	}

	counts := make(map[string]int)
	total := 0
	for _, d := range docs {
		var e activity.Entry
		if err := d.Decode(&e); err != nil {
			continue
		}
		counts[e.Timestamp.Weekday().String()[:3]]++
		total++
	}

	week := emptyWeek(now)
	for i := range week.Days {
		week.Days[i].Count = counts[week.Days[i].Day]
	}
	week.Total = total
	return week, nil
}

func emptyWeek(now time.Time) *activity.WeeklyActivity {
	days := make([]activity.DayCount, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6)
		days[i] = activity.DayCount{Day: day.Weekday().String()[:3]}
	}
	return &activity.WeeklyActivity{Days: days}
}
