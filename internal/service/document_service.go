package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/repository"
)

// DocumentService registers deliverables against project stages.
type DocumentService interface {
	Register(ctx context.Context, actor Actor, projectUUID string, payload dto.DocumentRegisterRequest) (dto.DocumentResponse, error)
	List(ctx context.Context, actor Actor, projectUUID string, currentOnly bool) ([]dto.DocumentResponse, error)
	Stages(ctx context.Context) ([]dto.StageResponse, error)
}

type documentService struct {
	documents repository.DocumentRepository
	access    projectAccess
	notifier  Notifier
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDocumentService builds a document service.
func NewDocumentService(
	documents repository.DocumentRepository,
	projects repository.ProjectRepository,
	reviewers repository.ReviewerRepository,
	notifier Notifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) DocumentService {
	return &documentService{
		documents: documents,
		access:    projectAccess{projects: projects, reviewers: reviewers},
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "document_service").Logger(),
		now:       time.Now,
	}
}

func (s *documentService) Register(ctx context.Context, actor Actor, projectUUID string, payload dto.DocumentRegisterRequest) (dto.DocumentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DocumentResponse{}, err
	}

	project, err := s.access.load(ctx, projectUUID)
	if err != nil {
		return dto.DocumentResponse{}, err
	}
	if err := s.access.requireAuthorOrCommittee(ctx, actor, project); err != nil {
		return dto.DocumentResponse{}, err
	}

	stage, err := s.documents.FindStage(ctx, payload.StageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DocumentResponse{}, ErrUnknownStage
		}
		return dto.DocumentResponse{}, err
	}

	document := models.Document{
		UUID:         uuid.NewString(),
		ProjectID:    project.ID,
		StageID:      stage.ID,
		UploadedBy:   actor.ID,
		OriginalName: strings.TrimSpace(payload.OriginalName),
		StorageURL:   strings.TrimSpace(payload.StorageURL),
		MimeType:     strings.TrimSpace(payload.MimeType),
		FileSize:     payload.FileSize,
		CreatedAt:    s.now(),
	}
	if err := s.documents.Register(ctx, &document); err != nil {
		return dto.DocumentResponse{}, err
	}

	s.logger.Info().
		Str("project_uuid", project.UUID).
		Str("stage", stage.Code).
		Int("version", document.Version).
		Msg("document registered")

	projectID := project.ID
	s.notifier.NotifyActiveReviewers(ctx, project.ID, Event{
		Code:        notification.DocumentUploaded,
		ProjectID:   &projectID,
		ProjectUUID: project.UUID,
		Values: map[string]string{
			notification.TokenProjectTitle: project.Title,
			notification.TokenDocumentName: document.OriginalName,
			notification.TokenStageName:    stage.Name,
		},
		Data: map[string]interface{}{"document_id": document.ID, "version": document.Version},
	})

	return dto.NewDocumentResponse(document), nil
}

func (s *documentService) List(ctx context.Context, actor Actor, projectUUID string, currentOnly bool) ([]dto.DocumentResponse, error) {
	project, err := s.access.load(ctx, projectUUID)
	if err != nil {
		return nil, err
	}
	if err := s.access.canRead(ctx, actor, project); err != nil {
		return nil, err
	}

	documents, err := s.documents.ListByProject(ctx, project.ID, currentOnly)
	if err != nil {
		return nil, err
	}
	return dto.NewDocumentResponseSlice(documents), nil
}

func (s *documentService) Stages(ctx context.Context) ([]dto.StageResponse, error) {
	stages, err := s.documents.Stages(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewStageResponseSlice(stages), nil
}
