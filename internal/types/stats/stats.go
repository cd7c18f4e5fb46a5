package stats

import "time"

type BadgeType string

const (
	BadgeTasks  BadgeType = "tasks"
	BadgeRooms  BadgeType = "rooms"
	BadgeStreak BadgeType = "streak"
	BadgeTime   BadgeType = "time"
)

type Badge struct {
	ID          string     `json:"id" firestore:"id"`
	Name        string     `json:"name" firestore:"name"`
	Type        BadgeType  `json:"type" firestore:"type"`
	Requirement int        `json:"requirement" firestore:"requirement"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty" firestore:"unlockedAt,omitempty"`
}

type UserStats struct {
	XP                  int        `json:"xp" firestore:"xp"`
	CurrentStreak       int        `json:"currentStreak" firestore:"currentStreak"`
	LongestStreak       int        `json:"longestStreak" firestore:"longestStreak"`
	TotalTasksCompleted int        `json:"totalTasksCompleted" firestore:"totalTasksCompleted"`
	TotalRoomsCleaned   int        `json:"totalRoomsCleaned" firestore:"totalRoomsCleaned"`
	TotalMinutesCleaned int        `json:"totalMinutesCleaned" firestore:"totalMinutesCleaned"`
	LastCompletionAt    *time.Time `json:"lastCompletionAt,omitempty" firestore:"lastCompletionAt,omitempty"`
	Badges              []Badge    `json:"badges" firestore:"badges"`
}

// Level is derived from XP and never stored, so it cannot drift.
func (s *UserStats) Level() int {
	return s.XP/100 + 1
}

// LevelProgress is the XP shown inside the current level.
func (s *UserStats) LevelProgress() int {
	return s.XP % 100
}

// DefaultBadges returns the immutable badge catalog. Only UnlockedAt is ever
// mutated, and only from nil to a timestamp.
func DefaultBadges() []Badge {
	return []Badge{
		{ID: "first_task", Name: "First Sweep", Type: BadgeTasks, Requirement: 1},
		{ID: "task_10", Name: "Tidy Ten", Type: BadgeTasks, Requirement: 10},
		{ID: "task_50", Name: "Task Machine", Type: BadgeTasks, Requirement: 50},
		{ID: "task_100", Name: "Century Cleaner", Type: BadgeTasks, Requirement: 100},
		{ID: "room_1", Name: "Room Rescuer", Type: BadgeRooms, Requirement: 1},
		{ID: "room_5", Name: "Home Hero", Type: BadgeRooms, Requirement: 5},
		{ID: "streak_3", Name: "On a Roll", Type: BadgeStreak, Requirement: 3},
		{ID: "streak_7", Name: "Week Warrior", Type: BadgeStreak, Requirement: 7},
		{ID: "streak_30", Name: "Habit Master", Type: BadgeStreak, Requirement: 30},
		{ID: "time_60", Name: "Power Hour", Type: BadgeTime, Requirement: 60},
		{ID: "time_600", Name: "Deep Cleaner", Type: BadgeTime, Requirement: 600},
	}
}
