package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType binds an event code to its stored templates.
type NotificationType struct {
	ID              uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code            string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name            string `gorm:"size:128;not null" json:"name"`
	TemplateSubject string `gorm:"size:255;not null" json:"template_subject"`
	TemplateBody    string `gorm:"type:text;not null" json:"template_body"`
}

// Notification is an in-app message for one recipient.
type Notification struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UUID        string            `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	TypeID      uint              `gorm:"not null" json:"type_id"`
	ProjectID   *uint             `gorm:"index" json:"project_id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Message     string            `gorm:"type:text;not null" json:"message"`
	Data        datatypes.JSONMap `gorm:"type:json" json:"data"`
	IsRead      bool              `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt      *time.Time        `json:"read_at"`
	EmailSent   bool              `gorm:"not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time        `json:"email_sent_at"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
	Type        NotificationType  `gorm:"foreignKey:TypeID" json:"type"`
}
