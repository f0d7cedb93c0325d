package models

import "time"

// User is an operator account. One operator owns one client collection.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	Username  string    `gorm:"size:255;not null" json:"username"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
