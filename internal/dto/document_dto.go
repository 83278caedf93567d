package dto

import (
	"time"

	"github.com/sgpti/sgpti-api/internal/models"
)

// DocumentRegisterRequest registers deliverable metadata. The file itself
// lives in external storage.
type DocumentRegisterRequest struct {
	StageID      uint   `json:"stageId" validate:"required,min=1"`
	OriginalName string `json:"originalName" validate:"required,min=1,max=255"`
	StorageURL   string `json:"storageUrl" validate:"required,url,max=1024"`
	MimeType     string `json:"mimeType" validate:"omitempty,max=128"`
	FileSize     int64  `json:"fileSize" validate:"omitempty,min=0"`
}

// StageResponse describes a deliverable stage.
type StageResponse struct {
	ID        uint   `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// NewStageResponse converts a stage model.
func NewStageResponse(stage models.DeliverableStage) StageResponse {
	return StageResponse{ID: stage.ID, Code: stage.Code, Name: stage.Name, SortOrder: stage.SortOrder}
}

// NewStageResponseSlice converts stages.
func NewStageResponseSlice(stages []models.DeliverableStage) []StageResponse {
	out := make([]StageResponse, 0, len(stages))
	for _, stage := range stages {
		out = append(out, NewStageResponse(stage))
	}
	return out
}

// DocumentResponse is the serialized representation of a document.
type DocumentResponse struct {
	ID           uint          `json:"id"`
	UUID         string        `json:"uuid"`
	ProjectID    uint          `json:"projectId"`
	Stage        StageResponse `json:"stage"`
	UploadedBy   uint          `json:"uploadedBy"`
	OriginalName string        `json:"originalName"`
	StorageURL   string        `json:"storageUrl"`
	MimeType     string        `json:"mimeType,omitempty"`
	FileSize     int64         `json:"fileSize"`
	Version      int           `json:"version"`
	IsCurrent    bool          `json:"isCurrent"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// NewDocumentResponse converts a document model.
func NewDocumentResponse(document models.Document) DocumentResponse {
	return DocumentResponse{
		ID:           document.ID,
		UUID:         document.UUID,
		ProjectID:    document.ProjectID,
		Stage:        NewStageResponse(document.Stage),
		UploadedBy:   document.UploadedBy,
		OriginalName: document.OriginalName,
		StorageURL:   document.StorageURL,
		MimeType:     document.MimeType,
		FileSize:     document.FileSize,
		Version:      document.Version,
		IsCurrent:    document.IsCurrent,
		CreatedAt:    document.CreatedAt,
	}
}

// NewDocumentResponseSlice converts documents.
func NewDocumentResponseSlice(documents []models.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(documents))
	for _, document := range documents {
		out = append(out, NewDocumentResponse(document))
	}
	return out
}
