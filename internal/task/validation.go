// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package task

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateInput is the payload for a new task.
type CreateInput struct {
	Title      string     `json:"title" validate:"required,min=3,max=30"`
	Body       string     `json:"body" validate:"required,min=2,max=60"`
	Importance Importance `json:"importance" validate:"min=0,max=2"`
	EndTime    *time.Time `json:"end_time"`
	Ready      bool       `json:"ready"`
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	Title      *string     `json:"title" validate:"omitempty,min=3,max=30"`
	Body       *string     `json:"body" validate:"omitempty,min=2,max=60"`
	Importance *Importance `json:"importance" validate:"omitempty,min=0,max=2"`
	EndTime    *time.Time  `json:"end_time"`
	Ready      *bool       `json:"ready"`
}

// ParseSort maps a query value to a SortKey. Empty selects SortCreatedAt.
func ParseSort(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortCreatedAt, nil
	case SortCreatedAt, SortTitle, SortImportance, SortEndTime:
		return key, nil
	default:
		return "", oops.Code(CodeInvalid).
			With("field", "sort").
			Errorf("sort must be one of title, importance, end_time, created_at")
	}
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return oops.Code(CodeInvalid).
			With("field", strings.ToLower(fe.Field())).
			With("rule", fe.Tag()).
			Errorf("%s is invalid (%s %s)", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
	}
	return oops.Code(CodeInvalid).Wrap(err)
}

func validateEndTime(end *time.Time, now time.Time) error {
	if end != nil && end.Before(now) {
		return oops.Code(CodeInvalid).
			With("field", "end_time").
			Errorf("end_time can not be in the past")
	}
	return nil
}
