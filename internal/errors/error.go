package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryBuild   Category = "build"
	CategoryBundle  Category = "bundle"
	CategoryPublish Category = "publish"
	CategoryServer  Category = "server"
	CategoryCLI     Category = "cli"
)

// AdapterError is a structured error with a stable code, a hint and documentation.
type AdapterError struct {
	// Code is a unique error identifier (e.g., "E160").
	Code string

	// Category is the error type (config, build, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Path is the file or directory the error refers to, if any.
	Path string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AdapterError) Unwrap() error {
	return e.Wrapped
}

// WithPath records the file or directory involved.
func (e *AdapterError) WithPath(path string) *AdapterError {
	e.Path = path
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *AdapterError) WithSuggestion(s string) *AdapterError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *AdapterError) WithDetail(d string) *AdapterError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *AdapterError) Wrap(err error) *AdapterError {
	e.Wrapped = err
	return e
}

// New creates an AdapterError from a registered error code.
func New(code string) *AdapterError {
	template, ok := registry[code]
	if !ok {
		return &AdapterError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &AdapterError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new AdapterError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *AdapterError {
	return &AdapterError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an AdapterError.
// Errors that already carry a code are returned unchanged.
func FromError(err error, code string) *AdapterError {
	if err == nil {
		return nil
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err (or anything it wraps) is an AdapterError with the given code.
func HasCode(err error, code string) bool {
	var ae *AdapterError
	for err != nil {
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Wrapped
	}
	return false
}
