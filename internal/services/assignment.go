package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/assignhub/apiserver/internal/events"
	"github.com/assignhub/apiserver/internal/storage"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Get(ctx context.Context, id int) (types.Assignment, error)
	Create(ctx context.Context, assignment types.Assignment) (types.Assignment, error)
	ListByAdmin(ctx context.Context, adminID int) ([]types.Assignment, error)
	UpdateStatus(ctx context.Context, id int, status types.Status) (bool, error)
	SetAttachment(ctx context.Context, id int, key string) error
}

// AssignmentService encapsulates submission and review use-cases.
type AssignmentService struct {
	repo    AssignmentRepository
	users   UserRepository
	bus     events.Bus
	storage *storage.Storage
}

func NewAssignmentService(repo AssignmentRepository, users UserRepository) *AssignmentService {
	return &AssignmentService{repo: repo, users: users}
}

// WithEventBus enables lifecycle event publishing.
func (s *AssignmentService) WithEventBus(bus events.Bus) *AssignmentService {
	s.bus = bus
	return s
}

// WithStorage enables attachment uploads.
func (s *AssignmentService) WithStorage(st *storage.Storage) *AssignmentService {
	s.storage = st
	return s
}

// Submit creates a pending assignment addressed to the given admin.
// The admin ID must resolve to an existing account with the admin role.
func (s *AssignmentService) Submit(ctx context.Context, identity types.Identity, task string, adminID int) (types.Assignment, error) {
	if strings.TrimSpace(task) == "" {
		return types.Assignment{}, invalid("task is required")
	}

	if adminID < 1 {
		return types.Assignment{}, ErrAdminNotFound
	}
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Assignment{}, ErrAdminNotFound
		}
		return types.Assignment{}, err
	}
	if !admin.IsAdmin() {
		return types.Assignment{}, ErrAdminNotFound
	}

	assignment, err := s.repo.Create(ctx, types.Assignment{
		UserID:  identity.ID,
		Task:    task,
		AdminID: adminID,
		Status:  types.StatusPending,
	})
	if err != nil {
		return types.Assignment{}, err
	}

	s.publish(ctx, events.TypeSubmitted, assignment)
	return assignment, nil
}

// ListForAdmin returns all assignments addressed to the given admin,
// most recent first.
func (s *AssignmentService) ListForAdmin(ctx context.Context, adminID int) ([]types.Assignment, error) {
	return s.repo.ListByAdmin(ctx, adminID)
}

// Transition moves a pending assignment to accepted or rejected. Only
// the addressed admin may decide, and only once: a repeated decision,
// or one that loses a concurrent race, reports ErrNotPending. The
// underlying update is conditional on the row still being pending.
func (s *AssignmentService) Transition(ctx context.Context, identity types.Identity, id int, status types.Status) (types.Assignment, error) {
	if !status.Terminal() {
		return types.Assignment{}, invalid("status must be accepted or rejected")
	}

	assignment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Assignment{}, err
	}
	if assignment.AdminID != identity.ID {
		return types.Assignment{}, ErrForbidden
	}
	if assignment.Status != types.StatusPending {
		return types.Assignment{}, ErrNotPending
	}

	applied, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return types.Assignment{}, err
	}
	if !applied {
		// A concurrent decision landed between the read and the write.
		return types.Assignment{}, ErrNotPending
	}

	assignment, err = s.repo.Get(ctx, id)
	if err != nil {
		return types.Assignment{}, err
	}

	eventType := events.TypeAccepted
	if status == types.StatusRejected {
		eventType = events.TypeRejected
	}
	s.publish(ctx, eventType, assignment)
	return assignment, nil
}

// Attach stores an uploaded file for a pending assignment owned by the
// caller and records its object key.
func (s *AssignmentService) Attach(ctx context.Context, identity types.Identity, id int, filename, contentType string, data []byte) (types.Assignment, error) {
	if s.storage == nil {
		return types.Assignment{}, ErrAttachmentsDisabled
	}
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return types.Assignment{}, invalid("filename is required")
	}
	if len(data) == 0 {
		return types.Assignment{}, invalid("attachment is empty")
	}

	assignment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Assignment{}, err
	}
	if assignment.UserID != identity.ID {
		return types.Assignment{}, ErrForbidden
	}
	if assignment.Status != types.StatusPending {
		return types.Assignment{}, ErrNotPending
	}

	key := fmt.Sprintf("assignments/%d/%s", id, filename)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Assignment{}, err
	}

	if assignment.AttachmentKey != "" && assignment.AttachmentKey != key {
		if err := s.storage.Delete(ctx, assignment.AttachmentKey); err != nil {
			slog.Warn("failed to delete replaced attachment",
				"assignment_id", id, "key", assignment.AttachmentKey, "error", err)
		}
	}

	if err := s.repo.SetAttachment(ctx, id, key); err != nil {
		return types.Assignment{}, err
	}
	assignment.AttachmentKey = key
	return assignment, nil
}

// OpenAttachment streams the stored attachment to the submitting user
// or the addressed admin.
func (s *AssignmentService) OpenAttachment(ctx context.Context, identity types.Identity, id int) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, ErrAttachmentsDisabled
	}

	assignment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.UserID != identity.ID && assignment.AdminID != identity.ID {
		return nil, ErrForbidden
	}
	if assignment.AttachmentKey == "" {
		return nil, store.ErrNotFound
	}
	return s.storage.Get(ctx, assignment.AttachmentKey)
}

func (s *AssignmentService) publish(ctx context.Context, eventType string, assignment types.Assignment) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewEvent(eventType, assignment)); err != nil {
		// Events are best-effort; the request already succeeded.
		slog.Warn("failed to publish assignment event",
			"type", eventType, "assignment_id", assignment.ID, "error", err)
	}
}
