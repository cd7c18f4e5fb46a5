package activity

import "time"

type EntryType string

const (
	TypeTaskCompleted   EntryType = "task_completed"
	TypeRoomAnalyzed    EntryType = "room_analyzed"
	TypeRoomCleaned     EntryType = "room_cleaned"
	TypeBadgeUnlocked   EntryType = "badge_unlocked"
	TypeChallengeJoined EntryType = "challenge_joined"
	TypeSessionJoined   EntryType = "session_joined"
)

// Entry is append-only: nothing in the normal flow ever updates or deletes
// one.
type Entry struct {
	ID        string         `json:"id" firestore:"id"`
	Type      EntryType      `json:"type" firestore:"type"`
	Timestamp time.Time      `json:"timestamp" firestore:"timestamp"`
	Data      map[string]any `json:"data,omitempty" firestore:"data,omitempty"`
}

type DayCount struct {
	Day   string `json:"day"` // "Mon".."Sun"
	Count int    `json:"count"`
}

type WeeklyActivity struct {
	Days  []DayCount `json:"days"`
	Total int        `json:"total"`
}
