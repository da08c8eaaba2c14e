package models

import "time"

// Image is an externally hosted picture referenced by URL.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"image_id"`
	PostID    uint      `gorm:"index;not null" json:"-"`
	URL       string    `gorm:"size:2048;not null" json:"image_url"`
	IsDelete  bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `json:"-"`
}

// File is an uploaded binary stored under the upload root.
type File struct {
	ID        uint      `gorm:"primaryKey" json:"file_id"`
	PostID    uint      `gorm:"index;not null" json:"-"`
	Title     string    `gorm:"size:255;not null" json:"file_title"`
	Path      string    `gorm:"size:2048;not null" json:"file_path"` // relative, e.g. uploads/7/png/1718000000000<uuid>
	Size      int64     `gorm:"not null" json:"file_size"`
	MimeType  string    `gorm:"size:126" json:"file_type"`
	IsDelete  bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `json:"-"`
}

// All lists every model for auto migration.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Comment{}, &Like{}, &Image{}, &File{}}
}
