package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgpti/sgpti-api/internal/models"
)

// DocumentRepository persists versioned deliverable metadata.
type DocumentRepository interface {
	Register(ctx context.Context, document *models.Document) error
	FindByID(ctx context.Context, id uint) (models.Document, error)
	ListByProject(ctx context.Context, projectID uint, currentOnly bool) ([]models.Document, error)
	Stages(ctx context.Context) ([]models.DeliverableStage, error)
	FindStage(ctx context.Context, id uint) (models.DeliverableStage, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository constructs a repository backed by GORM.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Register stores the document as the next current version for its project stage.
func (r *documentRepository) Register(ctx context.Context, document *models.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&models.Document{}).
			Where("project_id = ? AND stage_id = ?", document.ProjectID, document.StageID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Document{}).
			Where("project_id = ? AND stage_id = ? AND is_current = ?", document.ProjectID, document.StageID, true).
			Update("is_current", false).Error; err != nil {
			return err
		}

		document.Version = latest + 1
		document.IsCurrent = true
		return tx.Omit(clause.Associations).Create(document).Error
	})
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Preload("Stage").First(document, document.ID).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uint) (models.Document, error) {
	var document models.Document
	if err := r.db.WithContext(ctx).Preload("Stage").First(&document, id).Error; err != nil {
		return models.Document{}, err
	}
	return document, nil
}

func (r *documentRepository) ListByProject(ctx context.Context, projectID uint, currentOnly bool) ([]models.Document, error) {
	query := r.db.WithContext(ctx).Preload("Stage").Where("project_id = ?", projectID)
	if currentOnly {
		query = query.Where("is_current = ?", true)
	}

	var documents []models.Document
	if err := query.Order("stage_id ASC").Order("version DESC").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *documentRepository) Stages(ctx context.Context) ([]models.DeliverableStage, error) {
	var stages []models.DeliverableStage
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *documentRepository) FindStage(ctx context.Context, id uint) (models.DeliverableStage, error) {
	var stage models.DeliverableStage
	if err := r.db.WithContext(ctx).First(&stage, id).Error; err != nil {
		return models.DeliverableStage{}, err
	}
	return stage, nil
}
