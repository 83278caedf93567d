package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// DefaultProjectTypes are the project types seeded on migration.
var DefaultProjectTypes = []models.ProjectType{
	{ID: 1, Code: "thesis", Name: "Thesis"},
	{ID: 2, Code: "dissertation", Name: "Dissertation"},
	{ID: 3, Code: "applied_project", Name: "Applied project"},
	{ID: 4, Code: "internship_report", Name: "Internship report"},
}

// DefaultStages are the deliverable stages seeded on migration.
var DefaultStages = []models.DeliverableStage{
	{ID: 1, Code: "proposal", Name: "Proposal", SortOrder: 1},
	{ID: 2, Code: "progress_report", Name: "Progress report", SortOrder: 2},
	{ID: 3, Code: "final_draft", Name: "Final draft", SortOrder: 3},
	{ID: 4, Code: "final_document", Name: "Final document", SortOrder: 4},
}

// Migrate creates the schema and upserts the fixed catalogues: statuses,
// notification types, project types and deliverable stages.
func Migrate(ctx context.Context, db *gorm.DB, catalog *notification.Catalog) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.ProjectType{},
		&models.ProjectStatus{},
		&models.Project{},
		&models.ProjectAuthor{},
		&models.ProjectReviewer{},
		&models.ProjectStatusHistory{},
		&models.NotificationType{},
		&models.Notification{},
		&models.DeliverableStage{},
		&models.Document{},
		&models.Comment{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return Seed(ctx, db, catalog)
}

// Seed upserts the fixed catalogues keyed by id.
func Seed(ctx context.Context, db *gorm.DB, catalog *notification.Catalog) error {
	statuses := make([]models.ProjectStatus, 0, len(workflow.Statuses()))
	for _, status := range workflow.Statuses() {
		statuses = append(statuses, models.ProjectStatus{
			ID:        uint(status.ID),
			Code:      status.Code,
			Name:      status.Name,
			Color:     status.Color,
			SortOrder: status.SortOrder,
		})
	}

	types := make([]models.NotificationType, 0)
	if catalog != nil {
		for _, tpl := range catalog.Templates() {
			types = append(types, models.NotificationType{
				ID:              tpl.TypeID,
				Code:            string(tpl.Code),
				Name:            tpl.Name,
				TemplateSubject: tpl.Subject,
				TemplateBody:    tpl.Body,
			})
		}
	}

	upsert := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsert).Create(&statuses).Error; err != nil {
			return fmt.Errorf("failed to seed statuses: %w", err)
		}
		if len(types) > 0 {
			if err := tx.Clauses(upsert).Create(&types).Error; err != nil {
				return fmt.Errorf("failed to seed notification types: %w", err)
			}
		}
		projectTypes := append([]models.ProjectType(nil), DefaultProjectTypes...)
		if err := tx.Clauses(upsert).Create(&projectTypes).Error; err != nil {
			return fmt.Errorf("failed to seed project types: %w", err)
		}
		stages := append([]models.DeliverableStage(nil), DefaultStages...)
		if err := tx.Clauses(upsert).Create(&stages).Error; err != nil {
			return fmt.Errorf("failed to seed stages: %w", err)
		}
		return nil
	})
}
