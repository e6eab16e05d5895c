// Package models contains the row types of the football feed and its error taxonomy.
package models

import "time"

// Table names as known by the remote data service.
const (
	PostTable    = "post"
	CommentTable = "comment"
)

// Post is a user-authored feed item.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null;default:''" json:"content"`
	ImageURL  string    `gorm:"column:image_url;not null;default:''" json:"image_url"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName keeps the singular table name used by the hosted service.
func (Post) TableName() string { return PostTable }
