package models

import "time"

// DeliverableStage is a milestone documents are uploaded against.
type DeliverableStage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code      string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name      string `gorm:"size:128;not null" json:"name"`
	SortOrder int    `gorm:"not null" json:"sort_order"`
}

// Document is a versioned deliverable registered against a project stage.
type Document struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UUID         string           `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	ProjectID    uint             `gorm:"not null;index:idx_document_stage" json:"project_id"`
	StageID      uint             `gorm:"not null;index:idx_document_stage" json:"stage_id"`
	UploadedBy   uint             `gorm:"not null" json:"uploaded_by"`
	OriginalName string           `gorm:"size:255;not null" json:"original_name"`
	StorageURL   string           `gorm:"size:1024;not null" json:"storage_url"`
	MimeType     string           `gorm:"size:128" json:"mime_type"`
	FileSize     int64            `json:"file_size"`
	Version      int              `gorm:"not null" json:"version"`
	IsCurrent    bool             `gorm:"not null;default:true" json:"is_current"`
	CreatedAt    time.Time        `json:"created_at"`
	Stage        DeliverableStage `gorm:"foreignKey:StageID" json:"stage"`
}

// TableName stores documents on the project_documents table.
func (Document) TableName() string {
	return "project_documents"
}
