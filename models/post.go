package models

import "time"

// Post represents a board post. Deletion is logical only.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Views     int64     `gorm:"not null;default:0" json:"view_count"`
	IsDelete  bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Images    []Image   `json:"images,omitempty"`
	Files     []File    `json:"files,omitempty"`
	Comments  []Comment `json:"-"`
	Likes     []Like    `json:"-"`
}
