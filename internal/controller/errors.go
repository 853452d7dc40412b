package controller

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration the controller cannot run with.
//
// Config errors are returned synchronously from New, Start, Reload and
// Change, before any background work starts. The controller keeps its prior
// configuration and state when one is returned.
//
// Config errors include:
//   - No sort terms
//   - No section key path
//   - Primary sort term not on the section key path
//   - Provider has no schema for the collection
//   - Section key path not in the schema
//   - Section key attribute of a different kind than declared
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Collection is the collection being configured.
	Collection string

	// KeyPath is the section key path (empty for ErrCodeNoSectionKeyPath).
	KeyPath string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeNoSortTerms indicates the sort term list is empty.
	ErrCodeNoSortTerms ConfigErrorCode = "NO_SORT_TERMS"

	// ErrCodeNoSectionKeyPath indicates the section key path is empty.
	ErrCodeNoSectionKeyPath ConfigErrorCode = "NO_SECTION_KEY_PATH"

	// ErrCodeSortTermMismatch indicates the first sort term does not sort by
	// the section key path.
	ErrCodeSortTermMismatch ConfigErrorCode = "SORT_TERM_MISMATCH"

	// ErrCodeSchemaUnavailable indicates the provider exposes no schema for
	// the collection.
	ErrCodeSchemaUnavailable ConfigErrorCode = "SCHEMA_UNAVAILABLE"

	// ErrCodeInvalidKeyPath indicates the section key path names no
	// attribute of the schema.
	ErrCodeInvalidKeyPath ConfigErrorCode = "INVALID_KEY_PATH"

	// ErrCodeKeyTypeMismatch indicates the section key attribute is not of
	// the declared kind.
	ErrCodeKeyTypeMismatch ConfigErrorCode = "KEY_TYPE_MISMATCH"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Collection != "" && e.KeyPath != "" {
		return fmt.Sprintf("%s: %s (collection=%s, key_path=%s)", e.Code, e.Message, e.Collection, e.KeyPath)
	}
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a ConfigError with the given code.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("controller closed")
