package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

type projectRepoStub struct {
	repository.ProjectRepository
	requests []repository.StatusChange
	err      error
}

func (p *projectRepoStub) ApplyStatusChange(ctx context.Context, change repository.StatusChange) (repository.StatusTransition, error) {
	p.requests = append(p.requests, change)
	if p.err != nil {
		return repository.StatusTransition{}, p.err
	}
	return repository.StatusTransition{ProjectID: change.ProjectID, From: 3, To: change.To, Version: 4, At: change.At}, nil
}

func TestStatusEngineStampsFromTable(t *testing.T) {
	repo := &projectRepoStub{}
	engine := NewStatusEngine(repo, nil, testLogger())
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	transition, err := engine.Apply(context.Background(), StatusChange{ProjectID: 7, To: workflow.StatusApproved, ActorID: 2, Reason: "  well done "})
	require.NoError(t, err)
	require.Equal(t, workflow.StatusUnderReview, transition.From)
	require.Equal(t, workflow.StatusApproved, transition.To)
	require.Equal(t, fixed, transition.At)

	require.Len(t, repo.requests, 1)
	require.Equal(t, "approved_at", repo.requests[0].Stamp)
	require.Equal(t, "well done", *repo.requests[0].Reason)
	require.Nil(t, repo.requests[0].ExpectFrom)

	_, err = engine.Apply(context.Background(), StatusChange{ProjectID: 7, To: workflow.StatusRejected, Reason: "   "})
	require.NoError(t, err)
	require.Empty(t, repo.requests[1].Stamp, "rejected has no timestamp column")
	require.Nil(t, repo.requests[1].Reason)
}

func TestStatusEngineUsesInjectedTable(t *testing.T) {
	repo := &projectRepoStub{}
	stamps := map[workflow.StatusID]workflow.StampColumn{workflow.StatusRejected: workflow.StampArchivedAt}
	engine := NewStatusEngine(repo, stamps, testLogger())
	stamps[workflow.StatusApproved] = workflow.StampApprovedAt

	expected := workflow.StatusUnderReview
	_, err := engine.Apply(context.Background(), StatusChange{ProjectID: 1, To: workflow.StatusRejected, ExpectFrom: &expected})
	require.NoError(t, err)
	require.Equal(t, "archived_at", repo.requests[0].Stamp)
	require.Equal(t, uint(workflow.StatusUnderReview), *repo.requests[0].ExpectFrom)

	_, err = engine.Apply(context.Background(), StatusChange{ProjectID: 1, To: workflow.StatusApproved})
	require.NoError(t, err)
	require.Empty(t, repo.requests[1].Stamp, "the engine keeps its own copy of the table")
}

func TestStatusEngineMapsStoreErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "missing project", err: gorm.ErrRecordNotFound, want: ErrProjectNotFound},
		{name: "lost race", err: repository.ErrStatusMismatch, want: ErrStatusConflict},
		{name: "store failure", err: errors.New("connection reset"), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &projectRepoStub{err: tc.err}
			engine := NewStatusEngine(repo, nil, testLogger())

			_, err := engine.Apply(context.Background(), StatusChange{ProjectID: 1, To: workflow.StatusSubmitted})
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.Equal(t, tc.err, err, "other store errors propagate unchanged")
		})
	}

	engine := NewStatusEngine(&projectRepoStub{}, nil, testLogger())
	_, err := engine.Apply(context.Background(), StatusChange{ProjectID: 1, To: workflow.StatusID(99)})
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStatusEngineConflictsOnStaleExpectation(t *testing.T) {
	f := newWorkflowFixture(t, true)
	project := createDraft(t, f, false)

	expected := workflow.StatusSubmitted
	_, err := f.engine.Apply(context.Background(), StatusChange{
		ProjectID:  project.ID,
		To:         workflow.StatusUnderReview,
		ActorID:    f.committee.ID,
		ExpectFrom: &expected,
	})
	require.ErrorIs(t, err, ErrStatusConflict)
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, int64(1), f.historyCount(t, project.ID))
}
