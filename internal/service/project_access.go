package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// Is reports whether the actor holds role.
func (a Actor) Is(role string) bool {
	return workflow.NormalizeRole(a.Role) == role
}

type projectAccess struct {
	projects  repository.ProjectRepository
	reviewers repository.ReviewerRepository
}

func (a projectAccess) load(ctx context.Context, uuid string) (models.Project, error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return models.Project{}, ErrProjectNotFound
	}
	project, err := a.projects.FindByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}

func (a projectAccess) isAuthor(ctx context.Context, projectID, userID uint) (bool, error) {
	authors, err := a.projects.Authors(ctx, projectID)
	if err != nil {
		return false, err
	}
	for _, author := range authors {
		if author.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// canRead grants committee and library everything, otherwise authors and
// active reviewers of the project.
func (a projectAccess) canRead(ctx context.Context, actor Actor, project models.Project) error {
	if workflow.ReadsAll(actor.Role) {
		return nil
	}

	author, err := a.isAuthor(ctx, project.ID, actor.ID)
	if err != nil {
		return err
	}
	if author {
		return nil
	}

	reviewer, err := a.reviewers.IsActiveReviewer(ctx, project.ID, actor.ID)
	if err != nil {
		return err
	}
	if reviewer {
		return nil
	}

	return ErrProjectAccessDenied
}

func (a projectAccess) requireAuthorOrCommittee(ctx context.Context, actor Actor, project models.Project) error {
	if actor.Is(workflow.RoleCommittee) {
		return nil
	}
	author, err := a.isAuthor(ctx, project.ID, actor.ID)
	if err != nil {
		return err
	}
	if !author {
		return ErrNotAuthor
	}
	return nil
}
