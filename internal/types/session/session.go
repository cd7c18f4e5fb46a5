package session

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
)

// Session is a body-doubling focus session. The host owns the lifecycle;
// participants self-add and self-deactivate.
type Session struct {
	ID              string     `json:"id" firestore:"id"`
	HostID          string     `json:"hostId" firestore:"hostId"`
	Title           string     `json:"title" firestore:"title"`
	DurationMinutes int        `json:"durationMinutes" firestore:"durationMinutes"`
	MaxParticipants int        `json:"maxParticipants" firestore:"maxParticipants"`
	Status          Status     `json:"status" firestore:"status"`
	InviteCode      string     `json:"inviteCode" firestore:"inviteCode"`
	StartedAt       *time.Time `json:"startedAt,omitempty" firestore:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty" firestore:"endedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" firestore:"createdAt"`
}

type Participant struct {
	UserID      string     `json:"userId" firestore:"userId"`
	DisplayName string     `json:"displayName" firestore:"displayName"`
	IsActive    bool       `json:"isActive" firestore:"isActive"`
	JoinedAt    time.Time  `json:"joinedAt" firestore:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt,omitempty" firestore:"leftAt,omitempty"`
}

type WithParticipants struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
}

// Joinable reports whether a session still accepts participants.
func (s *Session) Joinable() bool {
	return s.Status == StatusScheduled || s.Status == StatusActive
}
