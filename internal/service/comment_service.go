package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

const commentPreviewLength = 100

// CommentService manages discussion on projects.
type CommentService interface {
	Create(ctx context.Context, actor Actor, projectUUID string, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	List(ctx context.Context, actor Actor, projectUUID string) ([]dto.CommentResponse, error)
	Delete(ctx context.Context, actor Actor, commentID uint) error
}

type commentService struct {
	comments  repository.CommentRepository
	documents repository.DocumentRepository
	access    projectAccess
	notifier  Notifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCommentService builds a comment service.
func NewCommentService(
	comments repository.CommentRepository,
	documents repository.DocumentRepository,
	projects repository.ProjectRepository,
	reviewers repository.ReviewerRepository,
	notifier Notifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) CommentService {
	return &commentService{
		comments:  comments,
		documents: documents,
		access:    projectAccess{projects: projects, reviewers: reviewers},
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "comment_service").Logger(),
		now:       time.Now,
	}
}

func (s *commentService) Create(ctx context.Context, actor Actor, projectUUID string, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	project, err := s.access.load(ctx, projectUUID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	if err := s.access.canRead(ctx, actor, project); err != nil {
		return dto.CommentResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, ErrEmptyContent
	}

	if payload.DocumentID != nil {
		document, err := s.documents.FindByID(ctx, *payload.DocumentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CommentResponse{}, ErrDocumentNotFound
			}
			return dto.CommentResponse{}, err
		}
		if document.ProjectID != project.ID {
			return dto.CommentResponse{}, ErrForeignDocument
		}
	}
	if payload.ParentID != nil {
		parent, err := s.comments.FindByID(ctx, *payload.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CommentResponse{}, ErrInvalidParent
			}
			return dto.CommentResponse{}, err
		}
		if parent.ProjectID != project.ID {
			return dto.CommentResponse{}, ErrInvalidParent
		}
	}

	commentType := payload.CommentType
	if commentType == "" {
		commentType = models.CommentTypeGeneral
	}

	now := s.now()
	comment := models.Comment{
		UUID:        uuid.NewString(),
		ProjectID:   project.ID,
		DocumentID:  payload.DocumentID,
		ParentID:    payload.ParentID,
		UserID:      actor.ID,
		Content:     content,
		CommentType: commentType,
		PageNumber:  payload.PageNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	projectID := project.ID
	s.notifier.NotifyAllExcept(ctx, project.ID, actor.ID, Event{
		Code:        notification.NewComment,
		ProjectID:   &projectID,
		ProjectUUID: project.UUID,
		Values: map[string]string{
			notification.TokenProjectTitle:   project.Title,
			notification.TokenCommentPreview: commentPreview(content),
		},
		Data: map[string]interface{}{"comment_id": comment.ID},
	})

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) List(ctx context.Context, actor Actor, projectUUID string) ([]dto.CommentResponse, error) {
	project, err := s.access.load(ctx, projectUUID)
	if err != nil {
		return nil, err
	}
	if err := s.access.canRead(ctx, actor, project); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewCommentResponseSlice(comments), nil
}

func (s *commentService) Delete(ctx context.Context, actor Actor, commentID uint) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.UserID != actor.ID && !actor.Is(workflow.RoleCommittee) {
		return ErrNotCommentOwner
	}

	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	s.logger.Info().Uint("comment_id", comment.ID).Uint("actor_id", actor.ID).Msg("comment deleted")
	return nil
}

// commentPreview keeps the first runes of the sanitised content as plain
// text, marking truncation with an ellipsis.
func commentPreview(content string) string {
	content = html.UnescapeString(content)
	runes := []rune(content)
	if len(runes) <= commentPreviewLength {
		return content
	}
	return string(runes[:commentPreviewLength]) + "..."
}
