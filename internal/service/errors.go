package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services either is a validator
// error or wraps one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func kindErrorf(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

var (
	ErrProjectNotFound      = newKindError(ErrNotFound, "project not found")
	ErrUserNotFound         = newKindError(ErrNotFound, "user not found")
	ErrAuthorNotFound       = newKindError(ErrNotFound, "author not found on project")
	ErrNotificationNotFound = newKindError(ErrNotFound, "notification not found")
	ErrCommentNotFound      = newKindError(ErrNotFound, "comment not found")
	ErrDocumentNotFound     = newKindError(ErrNotFound, "document not found")

	ErrProjectAccessDenied = newKindError(ErrForbidden, "no access to this project")
	ErrRoleNotAllowed      = newKindError(ErrForbidden, "role may not perform this transition")
	ErrNotAssigned         = newKindError(ErrForbidden, "reviewer is not assigned to this project")
	ErrNotAuthor           = newKindError(ErrForbidden, "only project authors may perform this action")
	ErrStudentsOnly        = newKindError(ErrForbidden, "only students may create projects")
	ErrCommitteeOnly       = newKindError(ErrForbidden, "only the committee may perform this action")
	ErrNotCommentOwner     = newKindError(ErrForbidden, "only the author or the committee may delete this comment")

	ErrNotEditable  = newKindError(ErrInvalidState, "project can only be edited in draft or changes requested")
	ErrNotDraft     = newKindError(ErrInvalidState, "only draft projects can be submitted")
	ErrLastAuthor   = newKindError(ErrInvalidState, "project must keep at least one author")
	ErrSameStatus   = newKindError(ErrInvalidState, "project already has this status")
	ErrUnknownEvent = newKindError(ErrValidation, "unknown notification event")

	ErrUnknownStatus      = newKindError(ErrValidation, "unknown status")
	ErrUnknownProjectType = newKindError(ErrValidation, "unknown project type")
	ErrUnknownStage       = newKindError(ErrValidation, "unknown deliverable stage")
	ErrInvalidRoleType    = newKindError(ErrValidation, "invalid reviewer role type")
	ErrReviewerIneligible = newKindError(ErrValidation, "reviewer must be an active teacher or committee member")
	ErrAuthorIneligible   = newKindError(ErrValidation, "author must be an active student")
	ErrDuplicateAuthor    = newKindError(ErrValidation, "user already authors this project")
	ErrEmptyContent       = newKindError(ErrValidation, "content is empty after sanitization")
	ErrEmptyTitle         = newKindError(ErrValidation, "title is required")
	ErrInvalidParent      = newKindError(ErrValidation, "parent comment does not belong to this project")
	ErrForeignDocument    = newKindError(ErrValidation, "document does not belong to this project")
	ErrInvalidRetention   = newKindError(ErrValidation, "retention must be positive")
	ErrStatusConflict     = newKindError(ErrConflict, "project status changed concurrently, reload and retry")
	ErrOutboxClosed       = errors.New("email outbox closed")
	ErrOutboxFull         = errors.New("email outbox full")
)

func transitionNotAllowed(from, to string) error {
	return kindErrorf(ErrInvalidState, "cannot move project from %s to %s", from, to)
}
