package feedback

import "errors"

var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrRequestNotFound   = errors.New("feedback request not found")
	ErrAlreadyRequested  = errors.New("note already has an active feedback request")
	ErrEmptyDraft        = errors.New("draft text is empty")
	ErrInvalidTransition = errors.New("invalid feedback state transition")
)
