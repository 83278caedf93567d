package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/observability"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// StatusChange asks the engine to move a project to another status.
// ExpectFrom, when set, makes the write conditional on the current status.
type StatusChange struct {
	ProjectID  uint
	To         workflow.StatusID
	ActorID    uint
	Reason     string
	ExpectFrom *workflow.StatusID
}

// Transition is a committed status change.
type Transition struct {
	ProjectID uint
	From      workflow.StatusID
	To        workflow.StatusID
	Version   uint
	At        time.Time
}

// StatusEngine applies status changes atomically together with their
// history entry and timestamp stamp. It does not judge whether an edge is
// allowed; callers enforce the transition policy.
type StatusEngine struct {
	projects repository.ProjectRepository
	stamps   map[workflow.StatusID]workflow.StampColumn
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStatusEngine builds an engine. A nil stamps table uses workflow.Stamps().
func NewStatusEngine(projects repository.ProjectRepository, stamps map[workflow.StatusID]workflow.StampColumn, logger zerolog.Logger) *StatusEngine {
	if stamps == nil {
		stamps = workflow.Stamps()
	}
	table := make(map[workflow.StatusID]workflow.StampColumn, len(stamps))
	for id, column := range stamps {
		table[id] = column
	}

	return &StatusEngine{
		projects: projects,
		stamps:   table,
		logger:   logger.With().Str("component", "status_engine").Logger(),
		tracer:   otel.Tracer("github.com/sgpti/sgpti-api/internal/service/status_engine"),
		now:      time.Now,
	}
}

// Apply commits the change. Store errors other than a missing project or a
// lost race are returned unchanged.
func (e *StatusEngine) Apply(ctx context.Context, change StatusChange) (Transition, error) {
	if !change.To.Valid() {
		return Transition{}, ErrUnknownStatus
	}

	spanCtx, span := e.tracer.Start(ctx, "workflow.apply_status", trace.WithAttributes(
		attribute.Int64("project.id", int64(change.ProjectID)),
		attribute.String("status.to", change.To.Code()),
	))
	defer span.End()

	request := repository.StatusChange{
		ProjectID: change.ProjectID,
		To:        uint(change.To),
		ActorID:   change.ActorID,
		Stamp:     string(e.stamps[change.To]),
		At:        e.now(),
	}
	if reason := strings.TrimSpace(change.Reason); reason != "" {
		request.Reason = &reason
	}
	if change.ExpectFrom != nil {
		expected := uint(*change.ExpectFrom)
		request.ExpectFrom = &expected
	}

	result, err := e.projects.ApplyStatusChange(spanCtx, request)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return Transition{}, ErrProjectNotFound
		case errors.Is(err, repository.ErrStatusMismatch):
			return Transition{}, ErrStatusConflict
		default:
			return Transition{}, err
		}
	}

	transition := Transition{
		ProjectID: result.ProjectID,
		From:      workflow.StatusID(result.From),
		To:        workflow.StatusID(result.To),
		Version:   result.Version,
		At:        result.At,
	}

	observability.StatusTransitions().WithLabelValues(transition.From.Code(), transition.To.Code()).Inc()
	e.logger.Info().
		Uint("project_id", transition.ProjectID).
		Str("from", transition.From.Code()).
		Str("to", transition.To.Code()).
		Uint("actor_id", change.ActorID).
		Msg("project status changed")

	return transition, nil
}
