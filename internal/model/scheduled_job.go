package model

// Job statuses. pending -> running via an atomic claim; running -> pending
// (recurring success or retryable failure), done (one-off success) or
// failed (retry ceiling exceeded).
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// ScheduledJob is a recurring or one-off due-time record. DueAt is always
// the next instant the job becomes eligible; the engine polls for
// pending jobs with DueAt <= now and claims them one by one.
type ScheduledJob struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"index"`
	Agent        string
	JobType      string
	ScheduleKind string
	ScheduleJSON string
	Payload      string
	Status       string `gorm:"index:idx_jobs_status_due;default:pending"`
	DueAt        string `gorm:"index:idx_jobs_status_due"`
	RunCount     int    `gorm:"default:0"`
	MaxAttempts  int    `gorm:"default:5"`
	LastRunAt    *string
	LastError    *string
	CompletedAt  *string
	CreatedAt    string `gorm:"autoCreateTime:false"`
	UpdatedAt    string `gorm:"autoUpdateTime:false"`
}
