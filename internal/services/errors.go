package services

import "errors"

var (
	// ErrInvalidCredentials is returned for any login failure. Unknown
	// usernames and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateUsername is returned when registering a username that
	// already exists.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrAdminNotFound is returned when a submission references an ID
	// that does not resolve to an admin account.
	ErrAdminNotFound = errors.New("admin not found")

	// ErrForbidden is returned when an authenticated caller is not
	// permitted to act on the assignment.
	ErrForbidden = errors.New("forbidden")

	// ErrNotPending is returned when a decision is attempted on an
	// assignment that has already been accepted or rejected.
	ErrNotPending = errors.New("assignment is not pending")

	// ErrAttachmentsDisabled is returned when no object storage backend
	// is configured.
	ErrAttachmentsDisabled = errors.New("attachments are not enabled")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalid(msg string) error {
	return &ValidationError{msg: msg}
}
