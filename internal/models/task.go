package models

import "time"

// Task is a to-do item belonging to exactly one user.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	OwnerID     string    `json:"owner" gorm:"type:varchar(36);index;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
