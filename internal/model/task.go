package model

// Task kinds. A scheduled task carries the instant it should be worked on,
// a deadline task the instant it must be finished by.
const (
	TaskKindRegular   = "regular"
	TaskKindScheduled = "scheduled"
	TaskKindDeadline  = "deadline"
)

// PrioritySourceBang marks priorities derived from trailing '!' markers.
const PrioritySourceBang = "bang_suffix"

// Task is a single active item. Presence in this table is the active state:
// completing or deleting a task removes the row and writes a TaskEvent, so a
// task can never be both open and closed.
//
// Timestamps are stored as RFC3339 UTC strings so the table stays portable
// and replayable; gorm's time tracking is disabled for them.
type Task struct {
	ID             uint  `gorm:"primaryKey"`
	UserID         uint  `gorm:"index:idx_tasks_user"`
	CategoryID     *uint `gorm:"index"`
	Title          string
	Kind           string `gorm:"default:regular"`
	Priority       int    `gorm:"default:0"`
	PrioritySource string `gorm:"default:bang_suffix"`
	DueAt          *string
	CreatedAt      string `gorm:"autoCreateTime:false"`
	UpdatedAt      string `gorm:"autoUpdateTime:false"`
}
