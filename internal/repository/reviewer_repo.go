package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgpti/sgpti-api/internal/models"
)

// ReviewerRepository persists reviewer assignments. Rows are deactivated, never deleted.
type ReviewerRepository interface {
	Upsert(ctx context.Context, assignment *models.ProjectReviewer) error
	Deactivate(ctx context.Context, projectID, reviewerID uint) (bool, error)
	Find(ctx context.Context, projectID, reviewerID uint) (models.ProjectReviewer, error)
	ListActive(ctx context.Context, projectID uint) ([]models.ProjectReviewer, error)
	ListAll(ctx context.Context, projectID uint) ([]models.ProjectReviewer, error)
	IsActiveReviewer(ctx context.Context, projectID, userID uint) (bool, error)
}

type reviewerRepository struct {
	db *gorm.DB
}

// NewReviewerRepository constructs a repository backed by GORM.
func NewReviewerRepository(db *gorm.DB) ReviewerRepository {
	return &reviewerRepository{db: db}
}

// Upsert inserts the assignment or reactivates the existing row for the same pair.
func (r *reviewerRepository) Upsert(ctx context.Context, assignment *models.ProjectReviewer) error {
	assignment.IsActive = true
	err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "reviewer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_type", "is_active", "assigned_by", "assigned_at"}),
	}).Create(assignment).Error
	if err != nil {
		return err
	}

	stored, err := r.Find(ctx, assignment.ProjectID, assignment.ReviewerID)
	if err != nil {
		return err
	}
	*assignment = stored
	return nil
}

// Deactivate reports whether an active row was switched off.
func (r *reviewerRepository) Deactivate(ctx context.Context, projectID, reviewerID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ProjectReviewer{}).
		Where("project_id = ? AND reviewer_id = ? AND is_active = ?", projectID, reviewerID, true).
		Update("is_active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *reviewerRepository) Find(ctx context.Context, projectID, reviewerID uint) (models.ProjectReviewer, error) {
	var assignment models.ProjectReviewer
	if err := r.db.WithContext(ctx).Preload("Reviewer").
		Where("project_id = ? AND reviewer_id = ?", projectID, reviewerID).
		First(&assignment).Error; err != nil {
		return models.ProjectReviewer{}, err
	}
	return assignment, nil
}

func (r *reviewerRepository) ListActive(ctx context.Context, projectID uint) ([]models.ProjectReviewer, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("project_id = ? AND is_active = ?", projectID, true))
}

func (r *reviewerRepository) ListAll(ctx context.Context, projectID uint) ([]models.ProjectReviewer, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("project_id = ?", projectID))
}

func (r *reviewerRepository) IsActiveReviewer(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectReviewer{}).
		Where("project_id = ? AND reviewer_id = ? AND is_active = ?", projectID, userID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewerRepository) list(_ context.Context, query *gorm.DB) ([]models.ProjectReviewer, error) {
	var assignments []models.ProjectReviewer
	if err := query.Preload("Reviewer").
		Order("assigned_at ASC").Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}
