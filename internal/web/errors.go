// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/task"
	"github.com/holomush/tasklist/pkg/errutil"
)

// Boundary error codes.
const (
	CodeRequestInvalid = "REQUEST_INVALID"
	CodeRouteNotFound  = "ROUTE_NOT_FOUND"
)

const genericFailure = "Something went wrong!"

// errorMapping is how one error code is presented. An empty message means
// the error's own text is safe to show; coded client errors are created
// with user-facing text and never wrap secrets.
type errorMapping struct {
	status  int
	message string
}

var errorMappings = map[string]errorMapping{
	auth.CodeValidationFailed:      {status: http.StatusBadRequest},
	auth.CodeMissingFields:         {status: http.StatusBadRequest},
	auth.CodePasswordMismatch:      {status: http.StatusBadRequest},
	auth.CodeDuplicateEmail:        {status: http.StatusBadRequest},
	auth.CodeIncorrectEmail:        {status: http.StatusBadRequest, message: "incorrect email or password"},
	auth.CodeIncorrectPassword:     {status: http.StatusBadRequest, message: "incorrect email or password"},
	auth.CodeUserNotFound:          {status: http.StatusNotFound},
	auth.CodeInvalidPassword:       {status: http.StatusBadRequest},
	auth.CodeInvalidOrExpiredToken: {status: http.StatusNotFound},
	auth.CodeNotAuthorized:         {status: http.StatusForbidden},
	auth.CodeDeliveryFailed:        {status: http.StatusBadGateway, message: "email message was not sent, please try again"},
	auth.CodeSessionMissing:        {status: http.StatusUnauthorized},
	auth.CodeSessionExpired:        {status: http.StatusNotAcceptable, message: "invalid token"},
	auth.CodeSessionMalformed:      {status: http.StatusNotAcceptable, message: "invalid token"},
	auth.CodeSessionBadSignature:   {status: http.StatusNotAcceptable, message: "invalid token"},
	task.CodeNotFound:              {status: http.StatusNotFound},
	task.CodeInvalid:               {status: http.StatusBadRequest},
	CodeRequestInvalid:             {status: http.StatusBadRequest},
	CodeRouteNotFound:              {status: http.StatusNotFound},
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusFor returns the HTTP status and public message for err.
func statusFor(err error) (int, string) {
	code := errutil.Code(err)
	m, ok := errorMappings[code]
	if !ok {
		return http.StatusInternalServerError, genericFailure
	}
	if m.message != "" {
		return m.status, m.message
	}
	return m.status, err.Error()
}

// writeError renders err. Server errors are logged; in development the
// verbatim error and its code are included in the body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)

	body := errorBody{Status: "fail", Message: message}
	if status >= http.StatusInternalServerError {
		body.Status = "error"
		if status == http.StatusInternalServerError {
			errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
		}
	}
	if s.cfg.Development {
		body.Code = errutil.Code(err)
		body.Error = err.Error()
	}

	s.writeJSON(w, r, status, body)
}

func invalidRequest(format string, args ...any) error {
	return oops.Code(CodeRequestInvalid).Errorf(format, args...)
}
