package models

import "time"

// Like is a per (post, user) toggle. The unique index backs the upsert in the like service.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"user_id"`
	Liked     bool      `gorm:"not null" json:"liked"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `json:"-"`
}
