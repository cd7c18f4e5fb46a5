package challenge

import "time"

type Type string

const (
	TypeTasksCount   Type = "tasks_count"
	TypeTimeSpent    Type = "time_spent"
	TypeRoomComplete Type = "room_complete"
	TypeStreak       Type = "streak"
	TypeCollectibles Type = "collectibles"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
)

type Challenge struct {
	ID          string    `json:"id" firestore:"id"`
	CreatorID   string    `json:"creatorId" firestore:"creatorId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Type        Type      `json:"type" firestore:"type"`
	Target      int       `json:"target" firestore:"target"`
	StartDate   time.Time `json:"startDate" firestore:"startDate"`
	EndDate     time.Time `json:"endDate" firestore:"endDate"`
	Status      Status    `json:"status" firestore:"status"`
	InviteCode  string    `json:"inviteCode" firestore:"inviteCode"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
}

// Participant lives in its own sub-document keyed by user id, so concurrent
// progress updates from different participants never touch the same document.
type Participant struct {
	UserID      string     `json:"userId" firestore:"userId"`
	DisplayName string     `json:"displayName" firestore:"displayName"`
	Progress    int        `json:"progress" firestore:"progress"`
	Joined      time.Time  `json:"joined" firestore:"joined"`
	Completed   bool       `json:"completed" firestore:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
}

type WithParticipants struct {
	Challenge    Challenge     `json:"challenge"`
	Participants []Participant `json:"participants"`
}

// CanTransition reports whether the status change is allowed. Transitions are
// monotonic: a challenge never goes back to pending or in_progress.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusExpired
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed || to == StatusExpired
	default:
		return false
	}
}

// Expired reports whether the challenge window has closed.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.EndDate)
}

// Joinable reports whether a new participant may still enter.
func (c *Challenge) Joinable(now time.Time) bool {
	if c.Expired(now) {
		return false
	}
	return c.Status == StatusPending || c.Status == StatusInProgress
}
