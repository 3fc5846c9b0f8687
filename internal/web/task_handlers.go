// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/task"
)

// taskEnvelope nests a task one level below the response data.
type taskEnvelope struct {
	Data *task.Task `json:"data"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	sort, err := task.ParseSort(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tasks, err := s.tasks.List(r.Context(), user.ID, sort)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	s.writeJSON(w, r, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	var in task.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.tasks.Create(r.Context(), user.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, succeed(taskEnvelope{Data: created}))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tasks.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, succeed(taskEnvelope{Data: t}))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in task.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.tasks.Update(r.Context(), user.ID, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, succeed(taskEnvelope{Data: updated}))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	id, err := taskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.tasks.Get(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tasks.Delete(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, succeed(taskEnvelope{Data: t}))
}

func taskID(r *http.Request) (ulid.ULID, error) {
	raw := r.PathValue("id")
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, invalidRequest("invalid task id: %s", raw)
	}
	return id, nil
}

// mustUser returns the user set by requireAuth. Task routes are only
// registered behind it.
func mustUser(r *http.Request) *auth.User {
	user, found := UserFromContext(r.Context())
	if !found {
		panic("web: task route served without requireAuth")
	}
	return user
}
