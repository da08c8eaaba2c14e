package models

import "time"

// User represents a board member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"size:100;not null;index" json:"email"`
	ActiveEmail      *string   `gorm:"size:100;uniqueIndex:idx_users_active_email" json:"-"` // Email while active, NULL once deleted
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	Name             string    `gorm:"size:20;not null" json:"name"`
	Nickname         string    `gorm:"size:20;not null" json:"nickname"`
	RefreshTokenHash string    `gorm:"size:64" json:"-"` // sha256 hex of the current refresh token
	IsDelete         bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Posts            []Post    `json:"-"`
	Comments         []Comment `json:"-"`
}
