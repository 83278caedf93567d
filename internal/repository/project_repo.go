package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgpti/sgpti-api/internal/models"
)

var (
	// ErrStatusMismatch indicates the project status or version moved under a status write.
	ErrStatusMismatch = errors.New("project status changed concurrently")
	// ErrLastAuthor indicates an attempt to remove the only author of a project.
	ErrLastAuthor = errors.New("project must keep at least one author")
	// ErrAuthorExists indicates the account already authors the project.
	ErrAuthorExists = errors.New("account already authors the project")
)

var stampableColumns = map[string]struct{}{
	"submitted_at": {},
	"approved_at":  {},
	"archived_at":  {},
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	AuthorID   *uint
	ReviewerID *uint
	StatusID   *uint
	Limit      int
	Offset     int
}

// StatusChange describes one status write and its history entry.
type StatusChange struct {
	ProjectID  uint
	To         uint
	ActorID    uint
	Reason     *string
	ExpectFrom *uint
	Stamp      string
	At         time.Time
}

// StatusTransition is the outcome of a committed status write.
type StatusTransition struct {
	ProjectID uint
	From      uint
	To        uint
	Version   uint
	HistoryID uint
	At        time.Time
}

// ProjectRepository persists projects, their authors and their status trail.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project, authorID uint, reason string) error
	FindByUUID(ctx context.Context, uuid string) (models.Project, error)
	FindByID(ctx context.Context, id uint) (models.Project, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)
	ApplyStatusChange(ctx context.Context, change StatusChange) (StatusTransition, error)
	StatusHistory(ctx context.Context, projectID uint) ([]models.ProjectStatusHistory, error)
	Authors(ctx context.Context, projectID uint) ([]models.ProjectAuthor, error)
	AddAuthor(ctx context.Context, author models.ProjectAuthor) error
	RemoveAuthor(ctx context.Context, projectID, userID uint) error
	ProjectTypes(ctx context.Context) ([]models.ProjectType, error)
	FindType(ctx context.Context, id uint) (models.ProjectType, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository constructs a repository backed by GORM.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project, authorID uint, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}

		author := models.ProjectAuthor{
			ProjectID:    project.ID,
			UserID:       authorID,
			IsMainAuthor: true,
			AddedAt:      project.CreatedAt,
		}
		if err := tx.Omit(clause.Associations).Create(&author).Error; err != nil {
			return err
		}

		entry := models.ProjectStatusHistory{
			ProjectID:  project.ID,
			ToStatusID: project.StatusID,
			ChangedBy:  authorID,
			Reason:     optionalString(reason),
			ChangedAt:  project.CreatedAt,
		}
		return tx.Create(&entry).Error
	})
}

func (r *projectRepository) FindByUUID(ctx context.Context, uuid string) (models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Type").Preload("Status").Where("uuid = ?", uuid).First(&project).Error; err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (r *projectRepository) FindByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Type").Preload("Status").First(&project, id).Error; err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (r *projectRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(fields).Error
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{})

	if filter.AuthorID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.ProjectAuthor{}).Select("project_id").Where("user_id = ?", *filter.AuthorID))
	}
	if filter.ReviewerID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.ProjectReviewer{}).Select("project_id").Where("reviewer_id = ? AND is_active = ?", *filter.ReviewerID, true))
	}
	if filter.StatusID != nil {
		query = query.Where("status_id = ?", *filter.StatusID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var projects []models.Project
	if err := query.Preload("Type").Preload("Status").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) ApplyStatusChange(ctx context.Context, change StatusChange) (StatusTransition, error) {
	if change.Stamp != "" {
		if _, ok := stampableColumns[change.Stamp]; !ok {
			return StatusTransition{}, fmt.Errorf("column %q cannot be stamped", change.Stamp)
		}
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	var transition StatusTransition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Project
		if err := tx.Select("id", "status_id", "version").First(&current, change.ProjectID).Error; err != nil {
			return err
		}

		if change.ExpectFrom != nil && *change.ExpectFrom != current.StatusID {
			return ErrStatusMismatch
		}

		updates := map[string]interface{}{
			"status_id":  change.To,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		}
		if change.Stamp != "" {
			updates[change.Stamp] = at
		}

		result := tx.Model(&models.Project{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusMismatch
		}

		from := current.StatusID
		entry := models.ProjectStatusHistory{
			ProjectID:    current.ID,
			FromStatusID: &from,
			ToStatusID:   change.To,
			ChangedBy:    change.ActorID,
			Reason:       change.Reason,
			ChangedAt:    at,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		transition = StatusTransition{
			ProjectID: current.ID,
			From:      from,
			To:        change.To,
			Version:   current.Version + 1,
			HistoryID: entry.ID,
			At:        at,
		}
		return nil
	})
	if err != nil {
		return StatusTransition{}, err
	}

	return transition, nil
}

func (r *projectRepository) StatusHistory(ctx context.Context, projectID uint) ([]models.ProjectStatusHistory, error) {
	var entries []models.ProjectStatusHistory
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("changed_at ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *projectRepository) Authors(ctx context.Context, projectID uint) ([]models.ProjectAuthor, error) {
	return listAuthors(r.db.WithContext(ctx), projectID)
}

func (r *projectRepository) AddAuthor(ctx context.Context, author models.ProjectAuthor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ProjectAuthor{}).
			Where("project_id = ? AND user_id = ?", author.ProjectID, author.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAuthorExists
		}

		if author.IsMainAuthor {
			if err := tx.Model(&models.ProjectAuthor{}).
				Where("project_id = ?", author.ProjectID).
				Update("is_main_author", false).Error; err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(&author).Error
	})
}

func (r *projectRepository) RemoveAuthor(ctx context.Context, projectID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authors, err := listAuthors(tx, projectID)
		if err != nil {
			return err
		}

		var target *models.ProjectAuthor
		for i := range authors {
			if authors[i].UserID == userID {
				target = &authors[i]
				break
			}
		}
		if target == nil {
			return gorm.ErrRecordNotFound
		}
		if len(authors) <= 1 {
			return ErrLastAuthor
		}

		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.ProjectAuthor{}).Error; err != nil {
			return err
		}

		if !target.IsMainAuthor {
			return nil
		}

		var successor *models.ProjectAuthor
		for i := range authors {
			if authors[i].UserID == userID {
				continue
			}
			if successor == nil || authors[i].AddedAt.Before(successor.AddedAt) {
				successor = &authors[i]
			}
		}
		return tx.Model(&models.ProjectAuthor{}).
			Where("project_id = ? AND user_id = ?", projectID, successor.UserID).
			Update("is_main_author", true).Error
	})
}

func (r *projectRepository) ProjectTypes(ctx context.Context) ([]models.ProjectType, error) {
	var types []models.ProjectType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *projectRepository) FindType(ctx context.Context, id uint) (models.ProjectType, error) {
	var projectType models.ProjectType
	if err := r.db.WithContext(ctx).First(&projectType, id).Error; err != nil {
		return models.ProjectType{}, err
	}
	return projectType, nil
}

func listAuthors(db *gorm.DB, projectID uint) ([]models.ProjectAuthor, error) {
	var authors []models.ProjectAuthor
	if err := db.Preload("User").
		Where("project_id = ?", projectID).
		Order("is_main_author DESC").Order("added_at ASC").
		Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
