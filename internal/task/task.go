// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package task implements the owner-scoped to-do list.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned by repositories when no task matches.
var ErrNotFound = errors.New("task not found")

// Error codes.
const (
	CodeNotFound = "TASK_NOT_FOUND"
	CodeInvalid  = "TASK_INVALID"
)

// Importance ranks a task.
type Importance int

// Importance levels.
const (
	ImportanceLow Importance = iota
	ImportanceMedium
	ImportanceHigh
)

// Task is one to-do item. OwnerID never changes after creation.
type Task struct {
	ID         ulid.ULID  `json:"id"`
	OwnerID    ulid.ULID  `json:"owner"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Importance Importance `json:"importance"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Ready      bool       `json:"ready"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SortKey orders a task listing.
type SortKey string

// Supported sort keys.
const (
	SortCreatedAt  SortKey = "created_at"
	SortTitle      SortKey = "title"
	SortImportance SortKey = "importance"
	SortEndTime    SortKey = "end_time"
)

// Repository persists tasks. Every lookup is scoped to an owner, and a task
// owned by someone else is reported as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, owner, id ulid.ULID) (*Task, error)
	List(ctx context.Context, owner ulid.ULID, sort SortKey) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, owner, id ulid.ULID) error
}
