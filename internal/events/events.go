package events

import (
	"context"
	"time"

	"github.com/assignhub/apiserver/types"
)

// Channel is the broker channel assignment lifecycle events are
// published on.
const Channel = "assignment-events"

// Event type values.
const (
	TypeSubmitted = "assignment.submitted"
	TypeAccepted  = "assignment.accepted"
	TypeRejected  = "assignment.rejected"
)

// Event describes a single assignment lifecycle change. It is the JSON
// payload delivered to downstream consumers such as notification
// workers.
type Event struct {
	// Type is one of the assignment.* event type values.
	Type string `json:"type"`

	// AssignmentID identifies the assignment the event is about.
	AssignmentID int `json:"assignment_id"`

	// UserID identifies the submitting user.
	UserID int `json:"user_id"`

	// AdminID identifies the admin the assignment is addressed to.
	AdminID int `json:"admin_id"`

	// Status is the assignment status after the change.
	Status types.Status `json:"status"`

	// OccurredAt is the time the change was recorded.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event for the given assignment state.
func NewEvent(eventType string, assignment types.Assignment) Event {
	return Event{
		Type:         eventType,
		AssignmentID: assignment.ID,
		UserID:       assignment.UserID,
		AdminID:      assignment.AdminID,
		Status:       assignment.Status,
		OccurredAt:   time.Now(),
	}
}

// Handler processes a delivered event. Return an error to signal a
// retry/nack.
type Handler func(ctx context.Context, event Event) error

// Bus defines the broker-agnostic operations used by the app.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
