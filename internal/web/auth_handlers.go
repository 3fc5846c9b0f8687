// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"time"

	"github.com/holomush/tasklist/internal/auth"
)

type statusResponse struct {
	Status string `json:"status"`
}

var success = statusResponse{Status: "success"}

type dataResponse[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
}

func succeed[T any](data T) dataResponse[T] {
	return dataResponse[T]{Status: "success", Data: data}
}

type purgeResult struct {
	Purged int64 `json:"purged"`
}

type signupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordConf string `json:"passwordConf"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	NewPassword     string `json:"newPassword"`
	NewPasswordConf string `json:"newPasswordConf"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.auth.Signup(r.Context(), req.Email, req.Password, req.PasswordConf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result)
	s.writeJSON(w, r, http.StatusCreated, succeed(result.UserID.String()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result)
	s.writeJSON(w, r, http.StatusOK, struct {
		Status string `json:"status"`
		User   string `json:"user"`
	}{Status: "success", User: result.UserID.String()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, r, http.StatusOK, success)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, success)
}

// handleResetPassword serves the emailed link, so both values arrive in
// the query string.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.auth.ResetPassword(r.Context(), q.Get("token"), q.Get("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, success)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.auth.UpdatePassword(r.Context(), req.Email, req.Password, req.NewPassword, req.NewPasswordConf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, success)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	n, err := s.purger.PurgeExpired(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, succeed(purgeResult{Purged: n}))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, result *auth.SessionResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(s.auth.SessionExpiry().Seconds()),
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
