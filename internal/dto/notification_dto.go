package dto

import (
	"time"

	"github.com/sgpti/sgpti-api/internal/models"
)

// NotificationListQuery filters the inbox.
type NotificationListQuery struct {
	UnreadOnly bool `query:"unread"`
	Limit      int  `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset     int  `query:"offset" validate:"omitempty,min=0"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID          uint                   `json:"id"`
	UUID        string                 `json:"uuid"`
	UserID      uint                   `json:"userId"`
	Code        string                 `json:"code"`
	ProjectID   *uint                  `json:"projectId,omitempty"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	IsRead      bool                   `json:"isRead"`
	ReadAt      *time.Time             `json:"readAt,omitempty"`
	EmailSent   bool                   `json:"emailSent"`
	EmailSentAt *time.Time             `json:"emailSentAt,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	var data map[string]interface{}
	if len(model.Data) > 0 {
		data = map[string]interface{}(model.Data)
	}
	return NotificationResponse{
		ID:          model.ID,
		UUID:        model.UUID,
		UserID:      model.UserID,
		Code:        model.Type.Code,
		ProjectID:   model.ProjectID,
		Title:       model.Title,
		Message:     model.Message,
		Data:        data,
		IsRead:      model.IsRead,
		ReadAt:      model.ReadAt,
		EmailSent:   model.EmailSent,
		EmailSentAt: model.EmailSentAt,
		CreatedAt:   model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationListResponse is a page of the inbox.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Total  int64                  `json:"total"`
	Unread int64                  `json:"unread"`
}

// UnreadCountResponse reports the unread counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications were marked.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
