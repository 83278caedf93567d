package models

import "time"

// Comment types accepted on project comments.
const (
	CommentTypeGeneral     = "general"
	CommentTypeObservation = "observation"
	CommentTypeCorrection  = "correction"
	CommentTypeSuggestion  = "suggestion"
)

// Comment is a message posted on a project, optionally attached to a document.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        string    `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	DocumentID  *uint     `gorm:"index" json:"document_id"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CommentType string    `gorm:"size:32;not null;default:general" json:"comment_type"`
	PageNumber  *int      `json:"page_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"foreignKey:UserID" json:"user"`
}

// TableName stores comments on the project_comments table.
func (Comment) TableName() string {
	return "project_comments"
}
