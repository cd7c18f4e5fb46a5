// Package gamification holds the pure arithmetic behind XP, streaks and
// badges. Nothing here touches the store; callers apply the results to state
// and persist separately.
package gamification

import (
	"time"

	"declutterAPI/internal/types/stats"
)

// XPPerTask is the fixed award for completing one task.
const XPPerTask = 25

// ApplyTaskCompletion mutates s for a single completed task and returns any
// badges that became unlocked.
func ApplyTaskCompletion(s *stats.UserStats, estimatedMinutes int, now time.Time) []stats.Badge {
	s.XP += XPPerTask
	s.TotalTasksCompleted++
	s.TotalMinutesCleaned += estimatedMinutes

	s.CurrentStreak = advanceStreak(s.CurrentStreak, s.LastCompletionAt, now)
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	t := now
	s.LastCompletionAt = &t

	return EvaluateBadges(s, now)
}

// ApplyRoomCleaned records a fully cleaned room.
func ApplyRoomCleaned(s *stats.UserStats, now time.Time) []stats.Badge {
	s.TotalRoomsCleaned++
	return EvaluateBadges(s, now)
}

// advanceStreak computes the streak after a completion at now. Same calendar
// day keeps the streak, the next day extends it, anything longer restarts at 1.
func advanceStreak(current int, lastCompletion *time.Time, now time.Time) int {
	if lastCompletion == nil || current == 0 {
		return 1
	}
	switch daysBetween(*lastCompletion, now) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// DecayStreak is evaluated at day boundaries (app start, sign-in). A full
// calendar day with zero completions resets the current streak; the longest
// streak is untouched.
func DecayStreak(s *stats.UserStats, now time.Time) {
	if s.LastCompletionAt == nil {
		s.CurrentStreak = 0
		return
	}
	if daysBetween(*s.LastCompletionAt, now) > 1 {
		s.CurrentStreak = 0
	}
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// EvaluateBadges re-scans the catalog and unlocks every badge whose
// requirement is now met. The scan is idempotent: a badge already carrying an
// UnlockedAt timestamp is never unlocked again, and UnlockedAt is never
// cleared.
func EvaluateBadges(s *stats.UserStats, now time.Time) []stats.Badge {
	if len(s.Badges) == 0 {
		s.Badges = stats.DefaultBadges()
	}

	var unlocked []stats.Badge
	for i := range s.Badges {
		b := &s.Badges[i]
		if b.UnlockedAt != nil {
			continue
		}
		if counterFor(s, b.Type) >= b.Requirement {
			t := now
			b.UnlockedAt = &t
			unlocked = append(unlocked, *b)
		}
	}
	return unlocked
}

func counterFor(s *stats.UserStats, bt stats.BadgeType) int {
	switch bt {
	case stats.BadgeTasks:
		return s.TotalTasksCompleted
	case stats.BadgeRooms:
		return s.TotalRoomsCleaned
	case stats.BadgeStreak:
		return s.LongestStreak
	case stats.BadgeTime:
		return s.TotalMinutesCleaned
	default:
		return 0
	}
}
