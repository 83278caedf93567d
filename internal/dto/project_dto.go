package dto

import (
	"time"

	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// ProjectCreateRequest is the payload to open a new project in draft.
type ProjectCreateRequest struct {
	Title    string  `json:"title" validate:"required,min=5,max=500"`
	Abstract *string `json:"abstract" validate:"omitempty,max=10000"`
	Keywords *string `json:"keywords" validate:"omitempty,max=1000"`
	TypeID   uint    `json:"typeId" validate:"required,min=1"`
}

// ProjectUpdateRequest edits the descriptive fields of a project.
type ProjectUpdateRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=5,max=500"`
	Abstract *string `json:"abstract" validate:"omitempty,max=10000"`
	Keywords *string `json:"keywords" validate:"omitempty,max=1000"`
	TypeID   *uint   `json:"typeId" validate:"omitempty,min=1"`
}

// StatusUpdateRequest moves a project to a new status.
type StatusUpdateRequest struct {
	StatusID uint   `json:"statusId" validate:"required,min=1"`
	Reason   string `json:"reason" validate:"omitempty,max=2000"`
}

// ReviewerAssignRequest assigns an account as reviewer of a project.
type ReviewerAssignRequest struct {
	ReviewerID uint   `json:"reviewerId" validate:"required,min=1"`
	RoleType   string `json:"roleType" validate:"omitempty,max=32"`
}

// AuthorAddRequest adds a co-author to a project.
type AuthorAddRequest struct {
	UserID       uint `json:"userId" validate:"required,min=1"`
	IsMainAuthor bool `json:"isMainAuthor"`
}

// UserSummary is the public projection of an account.
type UserSummary struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// NewUserSummary converts a user model.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName(),
		Role:     user.Role,
	}
}

// StatusResponse describes one entry of the status catalogue.
type StatusResponse struct {
	ID        uint   `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sortOrder"`
}

// NewStatusResponse converts a catalogue status.
func NewStatusResponse(status workflow.Status) StatusResponse {
	return StatusResponse{
		ID:        uint(status.ID),
		Code:      status.Code,
		Name:      status.Name,
		Color:     status.Color,
		SortOrder: status.SortOrder,
	}
}

// NewStatusResponseSlice converts catalogue statuses.
func NewStatusResponseSlice(statuses []workflow.Status) []StatusResponse {
	out := make([]StatusResponse, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, NewStatusResponse(status))
	}
	return out
}

// ProjectTypeResponse describes a project type.
type ProjectTypeResponse struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewProjectTypeResponseSlice converts project types.
func NewProjectTypeResponseSlice(types []models.ProjectType) []ProjectTypeResponse {
	out := make([]ProjectTypeResponse, 0, len(types))
	for _, item := range types {
		out = append(out, ProjectTypeResponse{ID: item.ID, Code: item.Code, Name: item.Name})
	}
	return out
}

// AuthorResponse describes a project author.
type AuthorResponse struct {
	User         UserSummary `json:"user"`
	IsMainAuthor bool        `json:"isMainAuthor"`
	AddedAt      time.Time   `json:"addedAt"`
}

// NewAuthorResponseSlice converts author rows.
func NewAuthorResponseSlice(authors []models.ProjectAuthor) []AuthorResponse {
	out := make([]AuthorResponse, 0, len(authors))
	for _, author := range authors {
		out = append(out, AuthorResponse{
			User:         NewUserSummary(author.User),
			IsMainAuthor: author.IsMainAuthor,
			AddedAt:      author.AddedAt,
		})
	}
	return out
}

// ReviewerResponse describes an active reviewer assignment.
type ReviewerResponse struct {
	Reviewer   UserSummary `json:"reviewer"`
	RoleType   string      `json:"roleType"`
	IsActive   bool        `json:"isActive"`
	AssignedBy uint        `json:"assignedBy"`
	AssignedAt time.Time   `json:"assignedAt"`
}

// NewReviewerResponseSlice converts reviewer assignments.
func NewReviewerResponseSlice(assignments []models.ProjectReviewer) []ReviewerResponse {
	out := make([]ReviewerResponse, 0, len(assignments))
	for _, assignment := range assignments {
		out = append(out, ReviewerResponse{
			Reviewer:   NewUserSummary(assignment.Reviewer),
			RoleType:   assignment.RoleType,
			IsActive:   assignment.IsActive,
			AssignedBy: assignment.AssignedBy,
			AssignedAt: assignment.AssignedAt,
		})
	}
	return out
}

// HistoryResponse is one entry of the status trail.
type HistoryResponse struct {
	ID         uint      `json:"id"`
	FromStatus *string   `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ChangedBy  uint      `json:"changedBy"`
	Reason     *string   `json:"reason,omitempty"`
	ChangedAt  time.Time `json:"changedAt"`
}

// NewHistoryResponseSlice converts history rows, naming statuses by code.
func NewHistoryResponseSlice(entries []models.ProjectStatusHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		item := HistoryResponse{
			ID:        entry.ID,
			ToStatus:  workflow.StatusID(entry.ToStatusID).Code(),
			ChangedBy: entry.ChangedBy,
			Reason:    entry.Reason,
			ChangedAt: entry.ChangedAt,
		}
		if entry.FromStatusID != nil {
			from := workflow.StatusID(*entry.FromStatusID).Code()
			item.FromStatus = &from
		}
		out = append(out, item)
	}
	return out
}

// ProjectResponse is the serialized representation of a project.
type ProjectResponse struct {
	ID          uint                `json:"id"`
	UUID        string              `json:"uuid"`
	Title       string              `json:"title"`
	Abstract    *string             `json:"abstract,omitempty"`
	Keywords    *string             `json:"keywords,omitempty"`
	Type        ProjectTypeResponse `json:"type"`
	Status      StatusResponse      `json:"status"`
	Version     uint                `json:"version"`
	SubmittedAt *time.Time          `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time          `json:"approvedAt,omitempty"`
	ArchivedAt  *time.Time          `json:"archivedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewProjectResponse converts a project model.
func NewProjectResponse(project models.Project) ProjectResponse {
	return ProjectResponse{
		ID:       project.ID,
		UUID:     project.UUID,
		Title:    project.Title,
		Abstract: project.Abstract,
		Keywords: project.Keywords,
		Type: ProjectTypeResponse{
			ID:   project.Type.ID,
			Code: project.Type.Code,
			Name: project.Type.Name,
		},
		Status: StatusResponse{
			ID:        project.Status.ID,
			Code:      project.Status.Code,
			Name:      project.Status.Name,
			Color:     project.Status.Color,
			SortOrder: project.Status.SortOrder,
		},
		Version:     project.Version,
		SubmittedAt: project.SubmittedAt,
		ApprovedAt:  project.ApprovedAt,
		ArchivedAt:  project.ArchivedAt,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// NewProjectResponseSlice converts a slice of projects.
func NewProjectResponseSlice(projects []models.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		out = append(out, NewProjectResponse(project))
	}
	return out
}

// ProjectDetailResponse bundles a project with its people and trail.
type ProjectDetailResponse struct {
	ProjectResponse
	Authors      []AuthorResponse   `json:"authors"`
	Reviewers    []ReviewerResponse `json:"reviewers"`
	History      []HistoryResponse  `json:"history"`
	NextStatuses []StatusResponse   `json:"nextStatuses"`
}

// ProjectListResponse is a page of projects.
type ProjectListResponse struct {
	Items []ProjectResponse `json:"items"`
	Total int64             `json:"total"`
}

// TransitionResponse reports a committed status change.
type TransitionResponse struct {
	Project ProjectResponse `json:"project"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	At      time.Time       `json:"at"`
}
