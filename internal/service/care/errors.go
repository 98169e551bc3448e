package care

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid user id or password")
	ErrNotApproved         = errors.New("account is not approved")
	ErrDuplicateUser       = errors.New("user id already taken")
	ErrUserNotFound        = errors.New("user not found")
	ErrHospitalNotFound    = errors.New("hospital not found")
	ErrNotPending          = errors.New("user is not pending approval")
	ErrInvalidRole         = errors.New("operation not valid for this role")
	ErrInvalidScore        = errors.New("score must be between 0 and 10")
	ErrEmptyNarrative      = errors.New("note narrative is empty")
	ErrNoteNotFound        = errors.New("note not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlreadyAcknowledged = errors.New("alert is already acknowledged")
	ErrSelfDelete          = errors.New("cannot delete own account")
)
