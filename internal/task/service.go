// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package task

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service is the owner-scoped task API used by the HTTP layer.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("task repository is required")
	}
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns the owner's tasks in the requested order.
func (s *Service) List(ctx context.Context, owner ulid.ULID, sort SortKey) ([]*Task, error) {
	tasks, err := s.repo.List(ctx, owner, sort)
	if err != nil {
		return nil, oops.With("operation", "list tasks").With("owner", owner.String()).Wrap(err)
	}
	return tasks, nil
}

// Create validates in and stores a new task for owner.
func (s *Service) Create(ctx context.Context, owner ulid.ULID, in CreateInput) (*Task, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := validateEndTime(in.EndTime, now); err != nil {
		return nil, err
	}

	t := &Task{
		ID:         ulid.Make(),
		OwnerID:    owner,
		Title:      in.Title,
		Body:       in.Body,
		Importance: in.Importance,
		EndTime:    in.EndTime,
		Ready:      in.Ready,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, oops.With("operation", "create task").With("owner", owner.String()).Wrap(err)
	}
	return t, nil
}

// Get returns one of owner's tasks.
func (s *Service) Get(ctx context.Context, owner, id ulid.ULID) (*Task, error) {
	t, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, notFoundOr(err, id, "get task")
	}
	return t, nil
}

// Update applies the non-nil fields of in to one of owner's tasks.
func (s *Service) Update(ctx context.Context, owner, id ulid.ULID, in UpdateInput) (*Task, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := validateEndTime(in.EndTime, now); err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, notFoundOr(err, id, "get task")
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Body != nil {
		t.Body = *in.Body
	}
	if in.Importance != nil {
		t.Importance = *in.Importance
	}
	if in.EndTime != nil {
		t.EndTime = in.EndTime
	}
	if in.Ready != nil {
		t.Ready = *in.Ready
	}
	t.UpdatedAt = now

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, notFoundOr(err, id, "update task")
	}
	return t, nil
}

// Delete removes one of owner's tasks.
func (s *Service) Delete(ctx context.Context, owner, id ulid.ULID) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return notFoundOr(err, id, "delete task")
	}
	return nil
}

func notFoundOr(err error, id ulid.ULID, op string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeNotFound).With("id", id.String()).Errorf("no to-do found with that ID")
	}
	return oops.With("operation", op).With("id", id.String()).Wrap(err)
}
