package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// ReviewerManager maintains the reviewer assignments of projects. At most
// one row exists per (project, reviewer); removal only deactivates it.
type ReviewerManager struct {
	reviewers repository.ReviewerRepository
	users     repository.UserRepository
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewReviewerManager builds a manager.
func NewReviewerManager(reviewers repository.ReviewerRepository, users repository.UserRepository, logger zerolog.Logger) *ReviewerManager {
	return &ReviewerManager{
		reviewers: reviewers,
		users:     users,
		logger:    logger.With().Str("component", "reviewer_manager").Logger(),
		tracer:    otel.Tracer("github.com/sgpti/sgpti-api/internal/service/reviewer_manager"),
		now:       time.Now,
	}
}

// Assign creates or reactivates the assignment and returns the active
// reviewers ordered by assignment time.
func (m *ReviewerManager) Assign(ctx context.Context, projectID, reviewerID, assignedBy uint, roleType string) ([]models.ProjectReviewer, error) {
	normalized, ok := workflow.NormalizeReviewerRole(roleType)
	if !ok {
		return nil, ErrInvalidRoleType
	}

	spanCtx, span := m.tracer.Start(ctx, "reviewers.assign", trace.WithAttributes(
		attribute.Int64("project.id", int64(projectID)),
		attribute.Int64("reviewer.id", int64(reviewerID)),
		attribute.String("reviewer.role_type", normalized),
	))
	defer span.End()

	account, err := m.users.FindByID(spanCtx, reviewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	if !account.IsActive || !workflow.CanReview(account.Role) {
		return nil, ErrReviewerIneligible
	}

	assignment := models.ProjectReviewer{
		ProjectID:  projectID,
		ReviewerID: reviewerID,
		RoleType:   normalized,
		AssignedBy: assignedBy,
		AssignedAt: m.now(),
	}
	if err := m.reviewers.Upsert(spanCtx, &assignment); err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.logger.Info().
		Uint("project_id", projectID).
		Uint("reviewer_id", reviewerID).
		Str("role_type", normalized).
		Msg("reviewer assigned")

	return m.reviewers.ListActive(spanCtx, projectID)
}

// Remove deactivates the assignment. Removing an unassigned or inactive
// reviewer changes nothing.
func (m *ReviewerManager) Remove(ctx context.Context, projectID, reviewerID uint) ([]models.ProjectReviewer, error) {
	spanCtx, span := m.tracer.Start(ctx, "reviewers.remove", trace.WithAttributes(
		attribute.Int64("project.id", int64(projectID)),
		attribute.Int64("reviewer.id", int64(reviewerID)),
	))
	defer span.End()

	removed, err := m.reviewers.Deactivate(spanCtx, projectID, reviewerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if removed {
		m.logger.Info().Uint("project_id", projectID).Uint("reviewer_id", reviewerID).Msg("reviewer removed")
	}

	return m.reviewers.ListActive(spanCtx, projectID)
}

// Active lists the active reviewers of a project.
func (m *ReviewerManager) Active(ctx context.Context, projectID uint) ([]models.ProjectReviewer, error) {
	return m.reviewers.ListActive(ctx, projectID)
}

// IsActive reports whether userID actively reviews the project.
func (m *ReviewerManager) IsActive(ctx context.Context, projectID, userID uint) (bool, error) {
	return m.reviewers.IsActiveReviewer(ctx, projectID, userID)
}
