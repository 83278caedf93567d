package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/observability"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

const (
	reasonCreated          = "project created"
	reasonSubmitted        = "submitted for review"
	reasonReviewerAssigned = "review started after reviewer assignment"
)

// ProjectService drives projects through the titling workflow.
type ProjectService interface {
	Create(ctx context.Context, actor Actor, payload dto.ProjectCreateRequest) (dto.ProjectDetailResponse, error)
	Get(ctx context.Context, actor Actor, uuid string) (dto.ProjectDetailResponse, error)
	ListMine(ctx context.Context, actor Actor, limit, offset int) (dto.ProjectListResponse, error)
	Update(ctx context.Context, actor Actor, uuid string, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error)
	Submit(ctx context.Context, actor Actor, uuid string) (dto.TransitionResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, uuid string, payload dto.StatusUpdateRequest) (dto.TransitionResponse, error)
	AssignReviewer(ctx context.Context, actor Actor, uuid string, payload dto.ReviewerAssignRequest) ([]dto.ReviewerResponse, error)
	RemoveReviewer(ctx context.Context, actor Actor, uuid string, reviewerID uint) ([]dto.ReviewerResponse, error)
	AddAuthor(ctx context.Context, actor Actor, uuid string, payload dto.AuthorAddRequest) ([]dto.AuthorResponse, error)
	RemoveAuthor(ctx context.Context, actor Actor, uuid string, userID uint) ([]dto.AuthorResponse, error)
	History(ctx context.Context, actor Actor, uuid string) ([]dto.HistoryResponse, error)
	Statuses() []dto.StatusResponse
	Types(ctx context.Context) ([]dto.ProjectTypeResponse, error)
}

type projectService struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	manager   *ReviewerManager
	engine    *StatusEngine
	policy    workflow.Policy
	notifier  Notifier
	access    projectAccess
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProjectService builds the workflow controller.
func NewProjectService(
	projects repository.ProjectRepository,
	reviewers repository.ReviewerRepository,
	users repository.UserRepository,
	manager *ReviewerManager,
	engine *StatusEngine,
	policy workflow.Policy,
	notifier Notifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) ProjectService {
	return &projectService{
		projects:  projects,
		users:     users,
		manager:   manager,
		engine:    engine,
		policy:    policy,
		notifier:  notifier,
		access:    projectAccess{projects: projects, reviewers: reviewers},
		validator: validate,
		logger:    logger.With().Str("component", "project_service").Logger(),
		tracer:    otel.Tracer("github.com/sgpti/sgpti-api/internal/service/project"),
		now:       time.Now,
	}
}

func (s *projectService) Create(ctx context.Context, actor Actor, payload dto.ProjectCreateRequest) (dto.ProjectDetailResponse, error) {
	if !actor.Is(workflow.RoleStudent) {
		return dto.ProjectDetailResponse{}, ErrStudentsOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectDetailResponse{}, err
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return dto.ProjectDetailResponse{}, ErrEmptyTitle
	}
	if _, err := s.projects.FindType(ctx, payload.TypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectDetailResponse{}, ErrUnknownProjectType
		}
		return dto.ProjectDetailResponse{}, err
	}

	now := s.now()
	project := models.Project{
		UUID:      uuid.NewString(),
		Title:     title,
		Abstract:  trimmedOrNil(payload.Abstract),
		Keywords:  trimmedOrNil(payload.Keywords),
		TypeID:    payload.TypeID,
		StatusID:  uint(workflow.StatusDraft),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.projects.Create(ctx, &project, actor.ID, reasonCreated); err != nil {
		return dto.ProjectDetailResponse{}, err
	}

	s.logger.Info().Str("project_uuid", project.UUID).Uint("author_id", actor.ID).Msg("project created")

	created, err := s.projects.FindByID(ctx, project.ID)
	if err != nil {
		return dto.ProjectDetailResponse{}, err
	}
	return s.detail(ctx, actor, created)
}

func (s *projectService) Get(ctx context.Context, actor Actor, uuid string) (dto.ProjectDetailResponse, error) {
	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return dto.ProjectDetailResponse{}, err
	}
	if err := s.access.canRead(ctx, actor, project); err != nil {
		return dto.ProjectDetailResponse{}, err
	}
	return s.detail(ctx, actor, project)
}

func (s *projectService) ListMine(ctx context.Context, actor Actor, limit, offset int) (dto.ProjectListResponse, error) {
	filter := repository.ProjectFilter{Limit: limit, Offset: offset}
	switch {
	case workflow.ReadsAll(actor.Role):
	case actor.Is(workflow.RoleTeacher):
		filter.ReviewerID = &actor.ID
	default:
		filter.AuthorID = &actor.ID
	}

	projects, total, err := s.projects.List(ctx, filter)
	if err != nil {
		return dto.ProjectListResponse{}, err
	}

	return dto.ProjectListResponse{Items: dto.NewProjectResponseSlice(projects), Total: total}, nil
}

func (s *projectService) Update(ctx context.Context, actor Actor, uuid string, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectResponse{}, err
	}

	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	if err := s.access.requireAuthorOrCommittee(ctx, actor, project); err != nil {
		return dto.ProjectResponse{}, err
	}
	switch workflow.StatusID(project.StatusID) {
	case workflow.StatusDraft, workflow.StatusChangesRequested:
	default:
		return dto.ProjectResponse{}, ErrNotEditable
	}

	fields := map[string]interface{}{}
	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			return dto.ProjectResponse{}, ErrEmptyTitle
		}
		fields["title"] = title
	}
	if payload.Abstract != nil {
		fields["abstract"] = trimmedOrNil(payload.Abstract)
	}
	if payload.Keywords != nil {
		fields["keywords"] = trimmedOrNil(payload.Keywords)
	}
	if payload.TypeID != nil {
		if _, err := s.projects.FindType(ctx, *payload.TypeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ProjectResponse{}, ErrUnknownProjectType
			}
			return dto.ProjectResponse{}, err
		}
		fields["type_id"] = *payload.TypeID
	}
	if len(fields) == 0 {
		return dto.NewProjectResponse(project), nil
	}
	fields["updated_at"] = s.now()

	if err := s.projects.Update(ctx, project.ID, fields); err != nil {
		return dto.ProjectResponse{}, err
	}

	updated, err := s.projects.FindByID(ctx, project.ID)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	return dto.NewProjectResponse(updated), nil
}

func (s *projectService) Submit(ctx context.Context, actor Actor, uuid string) (dto.TransitionResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "projects.submit", trace.WithAttributes(attribute.String("project.uuid", uuid)))
	defer span.End()

	project, err := s.access.load(spanCtx, uuid)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	author, err := s.access.isAuthor(spanCtx, project.ID, actor.ID)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	if !author {
		return dto.TransitionResponse{}, ErrNotAuthor
	}
	if workflow.StatusID(project.StatusID) != workflow.StatusDraft {
		observability.TransitionRejections().WithLabelValues("not_draft").Inc()
		return dto.TransitionResponse{}, ErrNotDraft
	}

	expected := workflow.StatusDraft
	transition, err := s.engine.Apply(spanCtx, StatusChange{
		ProjectID:  project.ID,
		To:         workflow.StatusSubmitted,
		ActorID:    actor.ID,
		Reason:     reasonSubmitted,
		ExpectFrom: &expected,
	})
	if err != nil {
		span.RecordError(err)
		return dto.TransitionResponse{}, err
	}

	s.notifier.NotifyAuthors(spanCtx, project.ID, s.projectEvent(notification.ProjectSubmitted, project, nil))

	return s.transitionResponse(spanCtx, transition)
}

func (s *projectService) UpdateStatus(ctx context.Context, actor Actor, uuid string, payload dto.StatusUpdateRequest) (dto.TransitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TransitionResponse{}, err
	}
	target := workflow.StatusID(payload.StatusID)
	if !target.Valid() {
		return dto.TransitionResponse{}, ErrUnknownStatus
	}

	spanCtx, span := s.tracer.Start(ctx, "projects.update_status", trace.WithAttributes(
		attribute.String("project.uuid", uuid),
		attribute.String("status.to", target.Code()),
	))
	defer span.End()

	project, err := s.access.load(spanCtx, uuid)
	if err != nil {
		return dto.TransitionResponse{}, err
	}

	current := workflow.StatusID(project.StatusID)
	if err := s.authorizeTransition(spanCtx, actor, project, current, target); err != nil {
		return dto.TransitionResponse{}, err
	}

	transition, err := s.engine.Apply(spanCtx, StatusChange{
		ProjectID:  project.ID,
		To:         target,
		ActorID:    actor.ID,
		Reason:     payload.Reason,
		ExpectFrom: &current,
	})
	if err != nil {
		span.RecordError(err)
		return dto.TransitionResponse{}, err
	}

	values := map[string]string{notification.TokenReason: strings.TrimSpace(payload.Reason)}
	s.notifier.NotifyAuthors(spanCtx, project.ID, s.projectEvent(eventForStatus(target), project, values, target))

	return s.transitionResponse(spanCtx, transition)
}

func (s *projectService) authorizeTransition(ctx context.Context, actor Actor, project models.Project, from, to workflow.StatusID) error {
	if from == to {
		observability.TransitionRejections().WithLabelValues("same_status").Inc()
		return ErrSameStatus
	}

	access, verdict := s.policy.Authorize(from, to, actor.Role)
	switch verdict {
	case workflow.VerdictNoEdge:
		observability.TransitionRejections().WithLabelValues("no_edge").Inc()
		return transitionNotAllowed(from.Code(), to.Code())
	case workflow.VerdictRoleDenied:
		observability.TransitionRejections().WithLabelValues("role_denied").Inc()
		return ErrRoleNotAllowed
	}

	switch access {
	case workflow.AccessAssigned:
		assigned, err := s.manager.IsActive(ctx, project.ID, actor.ID)
		if err != nil {
			return err
		}
		if !assigned {
			observability.TransitionRejections().WithLabelValues("not_assigned").Inc()
			return ErrNotAssigned
		}
	case workflow.AccessAuthor:
		author, err := s.access.isAuthor(ctx, project.ID, actor.ID)
		if err != nil {
			return err
		}
		if !author {
			observability.TransitionRejections().WithLabelValues("not_author").Inc()
			return ErrNotAuthor
		}
	}

	return nil
}

func (s *projectService) AssignReviewer(ctx context.Context, actor Actor, uuid string, payload dto.ReviewerAssignRequest) ([]dto.ReviewerResponse, error) {
	if !actor.Is(workflow.RoleCommittee) {
		return nil, ErrCommitteeOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	spanCtx, span := s.tracer.Start(ctx, "projects.assign_reviewer", trace.WithAttributes(
		attribute.String("project.uuid", uuid),
		attribute.Int64("reviewer.id", int64(payload.ReviewerID)),
	))
	defer span.End()

	project, err := s.access.load(spanCtx, uuid)
	if err != nil {
		return nil, err
	}

	active, err := s.manager.Assign(spanCtx, project.ID, payload.ReviewerID, actor.ID, payload.RoleType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := s.notifier.Notify(spanCtx, payload.ReviewerID, s.projectEvent(notification.ReviewerAssigned, project, nil)); err != nil {
		s.logger.Warn().Err(err).Uint("reviewer_id", payload.ReviewerID).Msg("failed to notify assigned reviewer")
	}

	if workflow.StatusID(project.StatusID) == workflow.StatusSubmitted {
		expected := workflow.StatusSubmitted
		_, err := s.engine.Apply(spanCtx, StatusChange{
			ProjectID:  project.ID,
			To:         workflow.StatusUnderReview,
			ActorID:    actor.ID,
			Reason:     reasonReviewerAssigned,
			ExpectFrom: &expected,
		})
		switch {
		case err == nil:
			s.notifier.NotifyAuthors(spanCtx, project.ID, s.projectEvent(notification.StatusChanged, project, nil, workflow.StatusUnderReview))
		case errors.Is(err, ErrStatusConflict):
			s.logger.Info().Str("project_uuid", project.UUID).Msg("project left submitted before review could start")
		default:
			span.RecordError(err)
			return nil, err
		}
	}

	return dto.NewReviewerResponseSlice(active), nil
}

func (s *projectService) RemoveReviewer(ctx context.Context, actor Actor, uuid string, reviewerID uint) ([]dto.ReviewerResponse, error) {
	if !actor.Is(workflow.RoleCommittee) {
		return nil, ErrCommitteeOnly
	}

	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return nil, err
	}

	active, err := s.manager.Remove(ctx, project.ID, reviewerID)
	if err != nil {
		return nil, err
	}
	return dto.NewReviewerResponseSlice(active), nil
}

func (s *projectService) AddAuthor(ctx context.Context, actor Actor, uuid string, payload dto.AuthorAddRequest) ([]dto.AuthorResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireAuthorOrCommittee(ctx, actor, project); err != nil {
		return nil, err
	}

	account, err := s.users.FindByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !account.IsActive || workflow.NormalizeRole(account.Role) != workflow.RoleStudent {
		return nil, ErrAuthorIneligible
	}

	err = s.projects.AddAuthor(ctx, models.ProjectAuthor{
		ProjectID:    project.ID,
		UserID:       account.ID,
		IsMainAuthor: payload.IsMainAuthor,
		AddedAt:      s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrAuthorExists) {
			return nil, ErrDuplicateAuthor
		}
		return nil, err
	}

	authors, err := s.projects.Authors(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewAuthorResponseSlice(authors), nil
}

func (s *projectService) RemoveAuthor(ctx context.Context, actor Actor, uuid string, userID uint) ([]dto.AuthorResponse, error) {
	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireAuthorOrCommittee(ctx, actor, project); err != nil {
		return nil, err
	}

	if err := s.projects.RemoveAuthor(ctx, project.ID, userID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrAuthorNotFound
		case errors.Is(err, repository.ErrLastAuthor):
			return nil, ErrLastAuthor
		default:
			return nil, err
		}
	}

	authors, err := s.projects.Authors(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewAuthorResponseSlice(authors), nil
}

func (s *projectService) History(ctx context.Context, actor Actor, uuid string) ([]dto.HistoryResponse, error) {
	project, err := s.access.load(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.access.canRead(ctx, actor, project); err != nil {
		return nil, err
	}

	entries, err := s.projects.StatusHistory(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewHistoryResponseSlice(entries), nil
}

func (s *projectService) Statuses() []dto.StatusResponse {
	return dto.NewStatusResponseSlice(workflow.Statuses())
}

func (s *projectService) Types(ctx context.Context) ([]dto.ProjectTypeResponse, error) {
	types, err := s.projects.ProjectTypes(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewProjectTypeResponseSlice(types), nil
}

func (s *projectService) detail(ctx context.Context, actor Actor, project models.Project) (dto.ProjectDetailResponse, error) {
	authors, err := s.projects.Authors(ctx, project.ID)
	if err != nil {
		return dto.ProjectDetailResponse{}, err
	}
	reviewers, err := s.manager.Active(ctx, project.ID)
	if err != nil {
		return dto.ProjectDetailResponse{}, err
	}
	history, err := s.projects.StatusHistory(ctx, project.ID)
	if err != nil {
		return dto.ProjectDetailResponse{}, err
	}

	return dto.ProjectDetailResponse{
		ProjectResponse: dto.NewProjectResponse(project),
		Authors:         dto.NewAuthorResponseSlice(authors),
		Reviewers:       dto.NewReviewerResponseSlice(reviewers),
		History:         dto.NewHistoryResponseSlice(history),
		NextStatuses:    s.nextStatuses(actor, project, authors, reviewers),
	}, nil
}

// nextStatuses lists the targets the actor could move the project to now.
func (s *projectService) nextStatuses(actor Actor, project models.Project, authors []models.ProjectAuthor, reviewers []models.ProjectReviewer) []dto.StatusResponse {
	isAuthor := false
	for _, author := range authors {
		if author.UserID == actor.ID {
			isAuthor = true
		}
	}
	isReviewer := false
	for _, reviewer := range reviewers {
		if reviewer.ReviewerID == actor.ID {
			isReviewer = true
		}
	}

	from := workflow.StatusID(project.StatusID)
	out := make([]dto.StatusResponse, 0)
	for _, target := range s.policy.Targets(from, actor.Role) {
		access, _ := s.policy.Authorize(from, target, actor.Role)
		if access == workflow.AccessAssigned && !isReviewer {
			continue
		}
		if access == workflow.AccessAuthor && !isAuthor {
			continue
		}
		status, _ := workflow.LookupStatus(target)
		out = append(out, dto.NewStatusResponse(status))
	}
	return out
}

func (s *projectService) transitionResponse(ctx context.Context, transition Transition) (dto.TransitionResponse, error) {
	project, err := s.projects.FindByID(ctx, transition.ProjectID)
	if err != nil {
		return dto.TransitionResponse{}, err
	}
	return dto.TransitionResponse{
		Project: dto.NewProjectResponse(project),
		From:    transition.From.Code(),
		To:      transition.To.Code(),
		At:      transition.At,
	}, nil
}

// projectEvent builds an event carrying the project title and, when given,
// the display name of the new status.
func (s *projectService) projectEvent(code notification.EventCode, project models.Project, values map[string]string, status ...workflow.StatusID) Event {
	merged := map[string]string{notification.TokenProjectTitle: project.Title}
	for key, value := range values {
		merged[key] = value
	}
	data := map[string]interface{}{}
	if len(status) > 0 {
		if entry, ok := workflow.LookupStatus(status[0]); ok {
			merged[notification.TokenNewStatus] = entry.Name
			data["status"] = entry.Code
		}
	}

	projectID := project.ID
	return Event{
		Code:        code,
		ProjectID:   &projectID,
		ProjectUUID: project.UUID,
		Values:      merged,
		Data:        data,
	}
}

// statusEvents picks the notification sent to authors when a project enters
// a status. Statuses not listed send the generic status change.
var statusEvents = map[workflow.StatusID]notification.EventCode{
	workflow.StatusSubmitted: notification.ProjectSubmitted,
	workflow.StatusApproved:  notification.ProjectApproved,
	workflow.StatusRejected:  notification.ProjectRejected,
}

func eventForStatus(status workflow.StatusID) notification.EventCode {
	if code, ok := statusEvents[status]; ok {
		return code
	}
	return notification.StatusChanged
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
