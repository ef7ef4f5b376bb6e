package domain

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures by where they happened.
type ErrorKind string

const (
	// KindNetwork means no response was received from upstream.
	KindNetwork ErrorKind = "network"
	// KindRejected means upstream answered with a non-2xx status.
	KindRejected ErrorKind = "rejected"
	// KindValidation means the request failed local checks before submission.
	KindValidation ErrorKind = "validation"
	// KindNotFound means the requested record or view does not exist.
	KindNotFound ErrorKind = "not_found"
)

// FieldError is one field/message pair from a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the error type every service and repository call returns.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, &APIError{Kind: KindNetwork}) works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewValidationError builds a local pre-submission failure.
func NewValidationError(msg string, fields ...FieldError) error {
	return &APIError{Kind: KindValidation, Message: msg, Fields: fields}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(msg string, err error) error {
	return &APIError{Kind: KindNetwork, Message: msg, Err: err}
}

// NewNotFoundError builds a not-found failure.
func NewNotFoundError(msg string) error {
	return &APIError{Kind: KindNotFound, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not an *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
