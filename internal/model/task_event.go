package model

// Lifecycle event actions.
const (
	EventCompleted = "completed"
	EventDeleted   = "deleted"
)

// TaskEvent is one row of the append-only lifecycle log. It is written in
// the same transaction that removes the task row and is the only way to
// reconstruct a removed task. Restoring an event deletes the row, so a
// restore can succeed at most once.
//
// Title holds the rendered title (priority markers included) at the moment
// of the transition; Reason is an audit note carried for deletions only.
type TaskEvent struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"index:idx_task_events_user"`
	TaskID *uint
	Action string `gorm:"index"`
	Title  string
	Reason string
	At     string `gorm:"autoCreateTime:false"`
}
