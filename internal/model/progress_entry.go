package model

// Progress sources.
const (
	ProgressSourceTask = "task_completed"
)

// ProgressEntry is one row of the progress log: the durable "something got
// done" fact written when a task completes. Statistics and daily-progress
// reads consume these rows (and the lifecycle log) without ever touching
// the active tasks table. Written in the same transaction as the lifecycle
// event, and never consumed by restore: restoring a task does not undo the
// progress it once counted for.
type ProgressEntry struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"index:idx_progress_user_at"`
	Source string
	TaskID *uint
	Amount float64 `gorm:"default:1"`
	At     string  `gorm:"index:idx_progress_user_at;autoCreateTime:false"`
}
