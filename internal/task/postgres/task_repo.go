// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL task repository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/store"
	"github.com/holomush/tasklist/internal/task"
)

const selectColumns = `SELECT id, owner_id, title, body, importance, end_time, ready, created_at, updated_at FROM tasks`

// orderBy is the only way a SortKey reaches SQL.
var orderBy = map[task.SortKey]string{
	task.SortCreatedAt:  "created_at, id",
	task.SortTitle:      "title, id",
	task.SortImportance: "importance DESC, id",
	task.SortEndTime:    "end_time NULLS LAST, id",
}

// TaskRepository implements task.Repository using PostgreSQL.
type TaskRepository struct {
	pool store.Querier
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool store.Querier) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, owner_id, title, body, importance, end_time, ready, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID.String(), t.OwnerID.String(), t.Title, t.Body, int(t.Importance), t.EndTime, t.Ready, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return oops.Code("TASK_CREATE_FAILED").
			With("operation", "insert task").
			With("owner", t.OwnerID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves one of owner's tasks.
func (r *TaskRepository) Get(ctx context.Context, owner, id ulid.ULID) (*task.Task, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1 AND owner_id = $2`, id.String(), owner.String())
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(task.ErrNotFound)
	}
	return t, err
}

// List returns owner's tasks in sort order.
func (r *TaskRepository) List(ctx context.Context, owner ulid.ULID, sort task.SortKey) ([]*task.Task, error) {
	order, ok := orderBy[sort]
	if !ok {
		order = orderBy[task.SortCreatedAt]
	}

	rows, err := r.pool.Query(ctx, selectColumns+` WHERE owner_id = $1 ORDER BY `+order, owner.String())
	if err != nil {
		return nil, oops.Code("TASK_QUERY_FAILED").With("operation", "list tasks").Wrap(err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TASK_QUERY_FAILED").With("operation", "iterate tasks").Wrap(err)
	}
	return tasks, nil
}

// Update writes the mutable fields of t. The owner column is part of the
// match, never of the SET list.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $3, body = $4, importance = $5, end_time = $6, ready = $7, updated_at = $8
		WHERE id = $1 AND owner_id = $2
	`, t.ID.String(), t.OwnerID.String(), t.Title, t.Body, int(t.Importance), t.EndTime, t.Ready, t.UpdatedAt)
	if err != nil {
		return oops.Code("TASK_UPDATE_FAILED").With("operation", "update task").With("id", t.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", t.ID.String()).Wrap(task.ErrNotFound)
	}
	return nil
}

// Delete removes one of owner's tasks.
func (r *TaskRepository) Delete(ctx context.Context, owner, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id.String(), owner.String())
	if err != nil {
		return oops.Code("TASK_DELETE_FAILED").With("operation", "delete task").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(task.ErrNotFound)
	}
	return nil
}

// scanTask leaves pgx.ErrNoRows unwrapped for callers to translate.
func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t               task.Task
		idStr, ownerStr string
		importance      int16
		endTime         *time.Time
	)
	err := row.Scan(&idStr, &ownerStr, &t.Title, &t.Body, &importance, &endTime, &t.Ready, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers add context
		}
		return nil, oops.Code("TASK_SCAN_FAILED").With("operation", "scan task").Wrap(err)
	}

	if t.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("TASK_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if t.OwnerID, err = ulid.Parse(ownerStr); err != nil {
		return nil, oops.Code("TASK_INVALID_ID").With("owner", ownerStr).Wrap(err)
	}
	t.Importance = task.Importance(importance)
	t.EndTime = endTime
	return &t, nil
}

// Compile-time interface check.
var _ task.Repository = (*TaskRepository)(nil)
