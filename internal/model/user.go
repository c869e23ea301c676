package model

import "time"

// User stores Telegram user metadata and per-user settings. Every other
// entity hangs off a user; deleting a user cascades to all of them.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	Timezone   string `gorm:"default:UTC"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
