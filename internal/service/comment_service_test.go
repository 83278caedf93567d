package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgpti/sgpti-api/internal/dto"
)

func TestCommentNotifiesEveryoneButTheAuthor(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)

	studentBefore := len(f.inbox(t, f.student))
	coauthorBefore := len(f.inbox(t, f.coauthor))
	teacherBefore := len(f.inbox(t, f.teacher))

	long := strings.Repeat("ñ", 120)
	comment, err := f.comments.Create(ctx, f.actor(f.teacher), project.UUID, dto.CommentCreateRequest{
		Content:     "<script>alert(1)</script>" + long,
		CommentType: "observation",
	})
	require.NoError(t, err)
	require.Equal(t, long, comment.Content, "markup is stripped")
	require.Equal(t, "observation", comment.CommentType)
	require.Equal(t, f.teacher.ID, comment.Author.ID)

	require.Len(t, f.inbox(t, f.teacher), teacherBefore)
	for _, entry := range []struct {
		before int
		inbox  int
	}{
		{studentBefore, len(f.inbox(t, f.student))},
		{coauthorBefore, len(f.inbox(t, f.coauthor))},
	} {
		require.Equal(t, entry.before+1, entry.inbox)
	}

	latest := f.inbox(t, f.student)
	message := latest[len(latest)-1]
	require.Equal(t, "NEW_COMMENT", message.Type.Code)
	require.Contains(t, message.Message, strings.Repeat("ñ", 100)+"...")
	require.NotContains(t, message.Message, strings.Repeat("ñ", 101))
}

func TestCommentPreview(t *testing.T) {
	require.Equal(t, "short", commentPreview("short"))
	exact := strings.Repeat("a", commentPreviewLength)
	require.Equal(t, exact, commentPreview(exact))
	require.Equal(t, exact+"...", commentPreview(exact+"b"))
	require.Equal(t, "Tom & Jerry's draft", commentPreview("Tom &amp; Jerry&#39;s draft"))

	entity := strings.Repeat("a", commentPreviewLength-1) + "&amp;b"
	require.Equal(t, strings.Repeat("a", commentPreviewLength-1)+"&...", commentPreview(entity))
}

func TestCommentNotificationEscapesOnce(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)

	comment, err := f.comments.Create(ctx, f.actor(f.teacher), project.UUID, dto.CommentCreateRequest{
		Content: "Tom & Jerry's <b>draft</b>",
	})
	require.NoError(t, err)
	require.Equal(t, "Tom &amp; Jerry&#39;s draft", comment.Content, "stored content stays sanitised")

	inbox := f.inbox(t, f.student)
	message := inbox[len(inbox)-1]
	require.Equal(t, "NEW_COMMENT", message.Type.Code)
	require.Contains(t, message.Message, "Tom & Jerry's draft")
	require.NotContains(t, message.Message, "&amp;")

	sent := f.mailer.messages()
	require.NotEmpty(t, sent)
	email := sent[len(sent)-1]
	require.Contains(t, email.HTML, "Tom &amp; Jerry&#39;s draft")
	require.NotContains(t, email.HTML, "&amp;amp;")
}

func TestCommentValidatesReferences(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)
	other := createDraft(t, f, false)

	_, err := f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "<b></b>   "})
	require.ErrorIs(t, err, ErrEmptyContent)

	foreignDoc, err := f.documents.Register(ctx, f.actor(f.student), other.UUID, dto.DocumentRegisterRequest{
		StageID:      1,
		OriginalName: "proposal.pdf",
		StorageURL:   "https://files.uni.test/proposal.pdf",
	})
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "see page 3", DocumentID: &foreignDoc.ID})
	require.ErrorIs(t, err, ErrForeignDocument)

	missing := uint(9999)
	_, err = f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "see page 3", DocumentID: &missing})
	require.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "reply", ParentID: &missing})
	require.ErrorIs(t, err, ErrInvalidParent)

	foreignComment, err := f.comments.Create(ctx, f.actor(f.student), other.UUID, dto.CommentCreateRequest{Content: "draft note"})
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "reply", ParentID: &foreignComment.ID})
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = f.comments.Create(ctx, f.actor(f.outsider), project.UUID, dto.CommentCreateRequest{Content: "hello"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCommentThreadAndDelete(t *testing.T) {
	f := newWorkflowFixture(t, true)
	ctx := context.Background()
	project := underReview(t, f)

	root, err := f.comments.Create(ctx, f.actor(f.teacher), project.UUID, dto.CommentCreateRequest{Content: "Please revise chapter 2"})
	require.NoError(t, err)
	reply, err := f.comments.Create(ctx, f.actor(f.student), project.UUID, dto.CommentCreateRequest{Content: "Done", ParentID: &root.ID})
	require.NoError(t, err)
	require.Equal(t, root.ID, *reply.ParentID)

	listed, err := f.comments.List(ctx, f.actor(f.library), project.UUID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	require.ErrorIs(t, f.comments.Delete(ctx, f.actor(f.student), root.ID), ErrNotCommentOwner)
	require.NoError(t, f.comments.Delete(ctx, f.actor(f.committee), root.ID))
	require.ErrorIs(t, f.comments.Delete(ctx, f.actor(f.committee), root.ID), ErrCommentNotFound)
	require.NoError(t, f.comments.Delete(ctx, f.actor(f.student), reply.ID))

	listed, err = f.comments.List(ctx, f.actor(f.student), project.UUID)
	require.NoError(t, err)
	require.Empty(t, listed)
}
