// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tasktest provides an in-memory task.Repository for tests.
package tasktest

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/task"
)

// Repository is a concurrency-safe in-memory task.Repository.
type Repository struct {
	mu    sync.Mutex
	tasks map[ulid.ULID]task.Task
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{tasks: make(map[ulid.ULID]task.Task)}
}

// Create stores a copy of t.
func (r *Repository) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = *t
	return nil
}

// Get returns a copy of the task if owner holds it.
func (r *Repository) Get(_ context.Context, owner, id ulid.ULID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != owner {
		return nil, oops.With("id", id.String()).Wrap(task.ErrNotFound)
	}
	return &t, nil
}

// List returns owner's tasks ordered like the SQL repository.
func (r *Repository) List(_ context.Context, owner ulid.ULID, sort task.SortKey) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*task.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == owner {
			t := t
			out = append(out, &t)
		}
	}
	slices.SortFunc(out, func(a, b *task.Task) int {
		var c int
		switch sort {
		case task.SortTitle:
			c = cmp.Compare(a.Title, b.Title)
		case task.SortImportance:
			c = cmp.Compare(b.Importance, a.Importance)
		case task.SortEndTime:
			c = compareEndTime(a, b)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	return out, nil
}

// Update replaces the stored task if owner holds it.
func (r *Repository) Update(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[t.ID]
	if !ok || stored.OwnerID != t.OwnerID {
		return oops.With("id", t.ID.String()).Wrap(task.ErrNotFound)
	}
	r.tasks[t.ID] = *t
	return nil
}

// Delete removes the task if owner holds it.
func (r *Repository) Delete(_ context.Context, owner, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != owner {
		return oops.With("id", id.String()).Wrap(task.ErrNotFound)
	}
	delete(r.tasks, id)
	return nil
}

// nil end times sort last.
func compareEndTime(a, b *task.Task) int {
	switch {
	case a.EndTime == nil && b.EndTime == nil:
		return 0
	case a.EndTime == nil:
		return 1
	case b.EndTime == nil:
		return -1
	}
	return a.EndTime.Compare(*b.EndTime)
}

var _ task.Repository = (*Repository)(nil)
