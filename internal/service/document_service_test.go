package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/sgpti/sgpti-api/internal/dto"
)

func TestRegisterDocumentVersionsAndNotifiesReviewers(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)
	reviewerBefore := len(f.inbox(t, f.teacher))
	authorBefore := len(f.inbox(t, f.student))

	request := dto.DocumentRegisterRequest{
		StageID:      2,
		OriginalName: "progress.pdf",
		StorageURL:   "https://files.uni.test/progress-v1.pdf",
		MimeType:     "application/pdf",
		FileSize:     2048,
	}
	first, err := f.documents.Register(ctx, f.actor(f.student), project.UUID, request)
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)
	require.True(t, first.IsCurrent)
	require.Equal(t, "progress_report", first.Stage.Code)

	request.StorageURL = "https://files.uni.test/progress-v2.pdf"
	second, err := f.documents.Register(ctx, f.actor(f.coauthor), project.UUID, request)
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)

	current, err := f.documents.List(ctx, f.actor(f.teacher), project.UUID, true)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.Equal(t, second.ID, current[0].ID)

	all, err := f.documents.List(ctx, f.actor(f.teacher), project.UUID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	inbox := f.inbox(t, f.teacher)
	require.Len(t, inbox, reviewerBefore+2)
	latest := inbox[len(inbox)-1]
	require.Equal(t, "DOCUMENT_UPLOADED", latest.Type.Code)
	require.Contains(t, latest.Message, "progress.pdf")
	require.Contains(t, latest.Message, "Progress report")
	require.Len(t, f.inbox(t, f.student), authorBefore, "authors are not told about their own uploads")
}

func TestRegisterDocumentRules(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)
	valid := dto.DocumentRegisterRequest{StageID: 1, OriginalName: "p.pdf", StorageURL: "https://files.uni.test/p.pdf"}

	_, err := f.documents.Register(ctx, f.actor(f.teacher), project.UUID, valid)
	require.ErrorIs(t, err, ErrNotAuthor)

	_, err = f.documents.Register(ctx, f.actor(f.committee), project.UUID, valid)
	require.NoError(t, err)

	unknown := valid
	unknown.StageID = 42
	_, err = f.documents.Register(ctx, f.actor(f.student), project.UUID, unknown)
	require.ErrorIs(t, err, ErrUnknownStage)

	invalid := valid
	invalid.StorageURL = "not a url"
	_, err = f.documents.Register(ctx, f.actor(f.student), project.UUID, invalid)
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	_, err = f.documents.Register(ctx, f.actor(f.student), "missing", valid)
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = f.documents.List(ctx, f.actor(f.outsider), project.UUID, false)
	require.ErrorIs(t, err, ErrForbidden)

	stages, err := f.documents.Stages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	require.Equal(t, "proposal", stages[0].Code)
}
