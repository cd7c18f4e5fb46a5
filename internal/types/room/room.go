package room

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Room struct {
	ID              string     `json:"id" firestore:"id"`
	Name            string     `json:"name" firestore:"name"`
	Type            string     `json:"type" firestore:"type"`
	Emoji           string     `json:"emoji" firestore:"emoji"`
	Tasks           []Task     `json:"tasks" firestore:"tasks"`
	Photos          []Photo    `json:"photos" firestore:"photos"`
	CurrentProgress int        `json:"currentProgress" firestore:"currentProgress"`
	MessLevel       int        `json:"messLevel" firestore:"messLevel"`
	AISummary       string     `json:"aiSummary" firestore:"aiSummary"`
	LastAnalyzedAt  *time.Time `json:"lastAnalyzedAt,omitempty" firestore:"lastAnalyzedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

type Task struct {
	ID               string     `json:"id" firestore:"id"`
	Title            string     `json:"title" firestore:"title"`
	Priority         Priority   `json:"priority" firestore:"priority"`
	EstimatedMinutes int        `json:"estimatedMinutes" firestore:"estimatedMinutes"`
	Completed        bool       `json:"completed" firestore:"completed"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
	SubTasks         []SubTask  `json:"subTasks,omitempty" firestore:"subTasks,omitempty"`
}

type SubTask struct {
	ID        string `json:"id" firestore:"id"`
	Title     string `json:"title" firestore:"title"`
	Completed bool   `json:"completed" firestore:"completed"`
}

type Photo struct {
	ID      string    `json:"id" firestore:"id"`
	URL     string    `json:"url" firestore:"url"`
	Kind    string    `json:"kind" firestore:"kind"` // "before", "after"
	TakenAt time.Time `json:"takenAt" firestore:"takenAt"`
}

// Analysis is the structured plan returned by the AI collaborator for a
// single room photo.
type Analysis struct {
	MessLevel     int      `json:"messLevel"`
	Summary       string   `json:"summary"`
	Tasks         []Task   `json:"tasks"`
	QuickWins     []string `json:"quickWins"`
	Encouragement string   `json:"encouragement"`
}

// ProgressAnalysis compares a before/after photo pair.
type ProgressAnalysis struct {
	ProgressPercentage int      `json:"progressPercentage"`
	CompletedTasks     []string `json:"completedTasks"`
	RemainingTasks     []string `json:"remainingTasks"`
	Encouragement      string   `json:"encouragement"`
}

// CompletedMinutes sums the estimates of completed tasks.
func (r *Room) CompletedMinutes() int {
	total := 0
	for _, t := range r.Tasks {
		if t.Completed {
			total += t.EstimatedMinutes
		}
	}
	return total
}

func (r *Room) TaskByID(taskID string) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].ID == taskID {
			return &r.Tasks[i]
		}
	}
	return nil
}
