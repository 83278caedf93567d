package models

import "time"

// ProjectType classifies a titling project.
type ProjectType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name string `gorm:"size:128;not null" json:"name"`
}

// ProjectStatus mirrors the fixed status catalogue so foreign keys resolve.
type ProjectStatus struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code      string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Color     string `gorm:"size:16" json:"color"`
	SortOrder int    `gorm:"not null" json:"sort_order"`
}

// Project is a thesis or titling work item tracked through the workflow.
type Project struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UUID        string        `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	Title       string        `gorm:"size:500;not null" json:"title"`
	Abstract    *string       `gorm:"type:text" json:"abstract"`
	Keywords    *string       `gorm:"type:text" json:"keywords"`
	TypeID      uint          `gorm:"not null;index" json:"type_id"`
	StatusID    uint          `gorm:"not null;index" json:"status_id"`
	Version     uint          `gorm:"not null;default:1" json:"version"`
	SubmittedAt *time.Time    `json:"submitted_at"`
	ApprovedAt  *time.Time    `json:"approved_at"`
	ArchivedAt  *time.Time    `json:"archived_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Type        ProjectType   `gorm:"foreignKey:TypeID" json:"type"`
	Status      ProjectStatus `gorm:"foreignKey:StatusID" json:"status"`
}

// ProjectAuthor links an account to a project it authors.
type ProjectAuthor struct {
	ProjectID    uint      `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	UserID       uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	IsMainAuthor bool      `gorm:"not null;default:false" json:"is_main_author"`
	AddedAt      time.Time `gorm:"not null" json:"added_at"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
}

// ProjectReviewer is a reviewer assignment. Removal flips IsActive; rows are never deleted.
type ProjectReviewer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"not null;uniqueIndex:idx_project_reviewer" json:"project_id"`
	ReviewerID uint      `gorm:"not null;uniqueIndex:idx_project_reviewer;index" json:"reviewer_id"`
	RoleType   string    `gorm:"size:32;not null" json:"role_type"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	Reviewer   User      `gorm:"foreignKey:ReviewerID" json:"reviewer"`
}

// ProjectStatusHistory is one append-only entry of a project's status trail.
type ProjectStatusHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"not null;index" json:"project_id"`
	FromStatusID *uint     `json:"from_status_id"`
	ToStatusID   uint      `gorm:"not null" json:"to_status_id"`
	ChangedBy    uint      `gorm:"not null" json:"changed_by"`
	Reason       *string   `gorm:"type:text" json:"reason"`
	ChangedAt    time.Time `gorm:"not null;index" json:"changed_at"`
}

// TableName keeps the singular history table name.
func (ProjectStatusHistory) TableName() string {
	return "project_status_history"
}
