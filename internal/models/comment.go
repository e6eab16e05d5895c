package models

// Comment is a text reply attached to exactly one Post. The post_id reference
// is not a database constraint; removing comments before their post is the
// application's job.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id,omitempty"`
	PostID  uint   `gorm:"not null;index" json:"post_id"`
	Content string `gorm:"type:text;not null" json:"content"`
}

// TableName keeps the singular table name used by the hosted service.
func (Comment) TableName() string { return CommentTable }
