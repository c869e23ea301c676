package model

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
)

// Step statuses. Steps only ever move pending -> done.
const (
	StepPending = "pending"
	StepDone    = "done"
)

// Project is an ordered multi-step item. The current step is always the
// pending step with the lowest order index; steps are consumed front to
// back and never reordered.
type Project struct {
	ID               uint `gorm:"primaryKey"`
	UserID           uint `gorm:"index"`
	Title            string
	Status           string `gorm:"default:active"`
	CurrentStepOrder *int
	CreatedAt        string `gorm:"autoCreateTime:false"`
	UpdatedAt        string `gorm:"autoUpdateTime:false"`
	CompletedAt      *string
	Steps            []ProjectStep `gorm:"foreignKey:ProjectID"`
}

// ProjectStep is one step of a project, identified by (project, order).
type ProjectStep struct {
	ID         uint `gorm:"primaryKey"`
	ProjectID  uint `gorm:"index:idx_project_steps_project_order"`
	OrderIndex int  `gorm:"index:idx_project_steps_project_order"`
	Text       string
	Status     string `gorm:"default:pending"`
	CreatedAt  string `gorm:"autoCreateTime:false"`
	DoneAt     *string
}
