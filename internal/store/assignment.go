package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/assignhub/apiserver/types"
)

// AssignmentRepository handles persistence for assignments.
type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Get(ctx context.Context, id int) (types.Assignment, error) {
	const query = `
		SELECT id, user_id, task, admin_id, status, attachment_key, created_at, updated_at
		FROM assignments
		WHERE id = $1`
	var assignment types.Assignment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.Task,
		&assignment.AdminID,
		&assignment.Status,
		&assignment.AttachmentKey,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Assignment{}, ErrNotFound
		}
		return types.Assignment{}, err
	}
	return assignment, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment types.Assignment) (types.Assignment, error) {
	now := time.Now()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	const query = `
		INSERT INTO assignments (user_id, task, admin_id, status, attachment_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		assignment.UserID,
		assignment.Task,
		assignment.AdminID,
		assignment.Status,
		assignment.AttachmentKey,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	).Scan(&assignment.ID); err != nil {
		return types.Assignment{}, err
	}
	return assignment, nil
}

// ListByAdmin returns all assignments addressed to the given admin,
// most recent first.
func (r *AssignmentRepository) ListByAdmin(ctx context.Context, adminID int) ([]types.Assignment, error) {
	const query = `
		SELECT id, user_id, task, admin_id, status, attachment_key, created_at, updated_at
		FROM assignments
		WHERE admin_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []types.Assignment
	for rows.Next() {
		var assignment types.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.UserID,
			&assignment.Task,
			&assignment.AdminID,
			&assignment.Status,
			&assignment.AttachmentKey,
			&assignment.CreatedAt,
			&assignment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

// UpdateStatus moves an assignment out of the pending state. The update
// is conditional on the row still being pending so that two concurrent
// decisions cannot both apply; it reports whether a row changed.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id int, status types.Status) (bool, error) {
	const query = `
		UPDATE assignments
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id, types.StatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetAttachment records the object-storage key of an uploaded file.
func (r *AssignmentRepository) SetAttachment(ctx context.Context, id int, key string) error {
	const query = `
		UPDATE assignments
		SET attachment_key = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
