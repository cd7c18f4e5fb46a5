package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutterAPI/internal/types/stats"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 8, d, hour, 0, 0, 0, time.UTC)
}

func TestApplyTaskCompletionAwards(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	now := day(10, 14)

	unlocked := ApplyTaskCompletion(&s, 15, now)

	assert.Equal(t, XPPerTask, s.XP)
	assert.Equal(t, 1, s.TotalTasksCompleted)
	assert.Equal(t, 15, s.TotalMinutesCleaned)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	require.NotNil(t, s.LastCompletionAt)

	// the first task unlocks first_task
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_task", unlocked[0].ID)
}

func TestLevelDerivedFromXP(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	now := day(10, 9)
	for i := 0; i < 4; i++ {
		ApplyTaskCompletion(&s, 5, now)
	}

	assert.Equal(t, 100, s.XP)
	assert.Equal(t, 2, s.Level())
	assert.Equal(t, 0, s.LevelProgress())
}

func TestStreakSameDayKeeps(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	ApplyTaskCompletion(&s, 5, day(10, 9))
	ApplyTaskCompletion(&s, 5, day(10, 22))

	assert.Equal(t, 1, s.CurrentStreak)
}

func TestStreakNextDayExtends(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	ApplyTaskCompletion(&s, 5, day(10, 23))
	ApplyTaskCompletion(&s, 5, day(11, 1))

	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestStreakGapRestarts(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	ApplyTaskCompletion(&s, 5, day(10, 9))
	ApplyTaskCompletion(&s, 5, day(11, 9))
	ApplyTaskCompletion(&s, 5, day(14, 9))

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak, "longest streak survives the restart")
}

func TestDecayStreak(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges()}
	ApplyTaskCompletion(&s, 5, day(10, 9))

	// next calendar day: streak still alive, might be extended today
	DecayStreak(&s, day(11, 8))
	assert.Equal(t, 1, s.CurrentStreak)

	// a full missed day kills it
	DecayStreak(&s, day(12, 8))
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
}

func TestEvaluateBadgesIdempotent(t *testing.T) {
	s := stats.UserStats{Badges: stats.DefaultBadges(), TotalTasksCompleted: 12}
	now := day(10, 9)

	first := EvaluateBadges(&s, now)
	require.Len(t, first, 2) // first_task and task_10
	firstUnlock := *first[0].UnlockedAt

	again := EvaluateBadges(&s, now.Add(time.Hour))
	assert.Empty(t, again, "already unlocked badges never unlock twice")

	for _, b := range s.Badges {
		if b.ID == first[0].ID {
			assert.Equal(t, firstUnlock, *b.UnlockedAt, "unlock timestamp never moves")
		}
	}
}

func TestEvaluateBadgesSeedsEmptyCatalog(t *testing.T) {
	s := stats.UserStats{TotalTasksCompleted: 1}
	unlocked := EvaluateBadges(&s, day(10, 9))

	assert.Len(t, s.Badges, len(stats.DefaultBadges()))
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_task", unlocked[0].ID)
}
