package types

import "time"

// Status represents the review state of an assignment.
type Status string

// Supported status values. An assignment starts out pending and is
// moved exactly once to accepted or rejected by the addressed admin.
const (
	// StatusPending indicates the assignment has been submitted
	// but not yet reviewed.
	StatusPending Status = "pending"

	// StatusAccepted indicates the addressed admin accepted the
	// assignment. Terminal.
	StatusAccepted Status = "accepted"

	// StatusRejected indicates the addressed admin rejected the
	// assignment. Terminal.
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the supported status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Assignment represents a task submitted by a user to a specific admin,
// tracked through a pending/accepted/rejected lifecycle.
type Assignment struct {
	// ID is the unique identifier of the assignment.
	ID int `json:"id" db:"id"`

	// UserID identifies the user who submitted the assignment.
	UserID int `json:"user_id" db:"user_id"`

	// Task is the text of the submitted assignment.
	Task string `json:"task" db:"task"`

	// AdminID identifies the admin the assignment is addressed to.
	// Only this admin may accept or reject it.
	AdminID int `json:"admin_id" db:"admin_id"`

	// Status is the current review state of the assignment.
	Status Status `json:"status" db:"status"`

	// AttachmentKey is the object-storage key of the uploaded
	// attachment, if any. Empty when no file has been attached.
	AttachmentKey string `json:"attachment_key,omitempty" db:"attachment_key"`

	// CreatedAt is the timestamp when the assignment was submitted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update, i.e. the
	// review decision or an attachment upload.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
