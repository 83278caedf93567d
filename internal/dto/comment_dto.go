package dto

import (
	"time"

	"github.com/sgpti/sgpti-api/internal/models"
)

// CommentCreateRequest posts a comment on a project.
type CommentCreateRequest struct {
	Content     string `json:"content" validate:"required,min=1,max=5000"`
	DocumentID  *uint  `json:"documentId" validate:"omitempty,min=1"`
	ParentID    *uint  `json:"parentId" validate:"omitempty,min=1"`
	CommentType string `json:"commentType" validate:"omitempty,oneof=general observation correction suggestion"`
	PageNumber  *int   `json:"pageNumber" validate:"omitempty,min=1"`
}

// CommentResponse is the serialized representation of a comment.
type CommentResponse struct {
	ID          uint        `json:"id"`
	UUID        string      `json:"uuid"`
	ProjectID   uint        `json:"projectId"`
	DocumentID  *uint       `json:"documentId,omitempty"`
	ParentID    *uint       `json:"parentId,omitempty"`
	Author      UserSummary `json:"author"`
	Content     string      `json:"content"`
	CommentType string      `json:"commentType"`
	PageNumber  *int        `json:"pageNumber,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewCommentResponse converts a comment model.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:          comment.ID,
		UUID:        comment.UUID,
		ProjectID:   comment.ProjectID,
		DocumentID:  comment.DocumentID,
		ParentID:    comment.ParentID,
		Author:      NewUserSummary(comment.User),
		Content:     comment.Content,
		CommentType: comment.CommentType,
		PageNumber:  comment.PageNumber,
		CreatedAt:   comment.CreatedAt,
	}
}

// NewCommentResponseSlice converts comments.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentResponse(comment))
	}
	return out
}
