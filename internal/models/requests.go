package models

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed field caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func minLength(field, value string, n int) error {
	if len([]rune(value)) < n {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", n)}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return firstError(
		required("username", r.Username),
		minLength("password", r.Password, 6),
	)
}

// RegisterRequest is the sign-up profile. ConfirmPassword is checked locally and never sent.
type RegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

func (r RegisterRequest) Validate() error {
	if err := firstError(
		required("first_name", r.FirstName),
		required("last_name", r.LastName),
		minLength("username", r.Username, 3),
		minLength("password", r.Password, 6),
		required("confirm_password", r.ConfirmPassword),
	); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return &ValidationError{Field: "confirm_password", Message: "does not match password"}
	}
	return nil
}

type CreatePlaylistRequest struct {
	Title string `json:"title"`
	Cover string `json:"cover,omitempty"`
}

func (r CreatePlaylistRequest) Validate() error {
	return required("title", r.Title)
}

// UpdatePlaylistRequest is a partial update; nil fields are left untouched.
type UpdatePlaylistRequest struct {
	Title *string `json:"title,omitempty"`
	Cover *string `json:"cover,omitempty"`
}

func (r UpdatePlaylistRequest) Validate() error {
	if r.Title == nil && r.Cover == nil {
		return &ValidationError{Field: "title", Message: "or cover must be provided"}
	}
	if r.Title != nil {
		return required("title", *r.Title)
	}
	return nil
}
