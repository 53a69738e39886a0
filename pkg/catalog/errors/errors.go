// Package errors provides the coded error taxonomy for catalog operations.
// This is a leaf package with no internal dependencies, designed to be
// imported by the catalog service, the store and the API layer without
// causing circular imports.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a catalog error.
type ErrorCode int

const (
	// ErrLogic indicates an invalid precondition: a missing folder or
	// volume reference, or a malformed new-asset request.
	ErrLogic ErrorCode = iota + 1

	// ErrConflict indicates a name collision detected in the metadata index.
	ErrConflict

	// ErrBackendConflict indicates a name collision on physical storage
	// that is not reflected in the index. Surfaced distinctly so callers
	// can run a reconciliation flow instead of treating it as ErrConflict.
	ErrBackendConflict

	// ErrValidation indicates one or more metadata fields failed
	// validation. The error carries every field violation.
	ErrValidation

	// ErrCancelled indicates a pre-action hook vetoed the operation.
	ErrCancelled

	// ErrMissingEntity indicates a referenced id is no longer resolvable.
	ErrMissingEntity

	// ErrPersistence indicates the element persistence service reported
	// a failure while assigning identity or saving content.
	ErrPersistence

	// ErrFileAccess indicates a source file stream could not be opened.
	ErrFileAccess

	// ErrVolume indicates a physical storage operation failed on the
	// volume backend.
	ErrVolume

	// ErrPermission indicates the authorization service denied the
	// requested permission.
	ErrPermission
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrLogic:
		return "Logic"
	case ErrConflict:
		return "Conflict"
	case ErrBackendConflict:
		return "BackendConflict"
	case ErrValidation:
		return "Validation"
	case ErrCancelled:
		return "Cancelled"
	case ErrMissingEntity:
		return "MissingEntity"
	case ErrPersistence:
		return "Persistence"
	case ErrFileAccess:
		return "FileAccess"
	case ErrVolume:
		return "Volume"
	case ErrPermission:
		return "Permission"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// FieldViolation describes a single failed validation rule.
type FieldViolation struct {
	Field   string
	Message string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// CatalogError is a catalog operation error with a classification code.
type CatalogError struct {
	Code    ErrorCode
	Message string

	// Path is the logical path the error relates to, when known.
	Path string

	// Fields carries the aggregated violations of a Validation error.
	Fields []FieldViolation

	// Err is the underlying cause, when one exists.
	Err error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path: %s)", e.Path)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewLogicError creates a Logic error.
func NewLogicError(format string, args ...any) *CatalogError {
	return &CatalogError{
		Code:    ErrLogic,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewConflictError creates a Conflict error for a name collision in the index.
func NewConflictError(name, path string) *CatalogError {
	return &CatalogError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("name %q is already taken by a sibling", name),
		Path:    path,
	}
}

// NewBackendConflictError creates a BackendConflict error for a collision
// on physical storage that the index does not know about.
func NewBackendConflictError(path string, cause error) *CatalogError {
	return &CatalogError{
		Code:    ErrBackendConflict,
		Message: "object already exists on the volume backend but is not indexed",
		Path:    path,
		Err:     cause,
	}
}

// NewValidationError creates a Validation error aggregating every
// field violation found.
func NewValidationError(fields []FieldViolation) *CatalogError {
	return &CatalogError{
		Code:    ErrValidation,
		Message: fmt.Sprintf("metadata validation failed (%d violation(s))", len(fields)),
		Fields:  fields,
	}
}

// NewCancelledError creates a Cancelled error for a vetoed hook.
func NewCancelledError(hook string) *CatalogError {
	return &CatalogError{
		Code:    ErrCancelled,
		Message: fmt.Sprintf("operation vetoed by %s hook", hook),
	}
}

// NewMissingEntityError creates a MissingEntity error.
func NewMissingEntityError(entityType, id string) *CatalogError {
	return &CatalogError{
		Code:    ErrMissingEntity,
		Message: fmt.Sprintf("%s %s no longer exists", entityType, id),
	}
}

// NewPersistenceError creates a Persistence error.
func NewPersistenceError(cause error) *CatalogError {
	return &CatalogError{
		Code:    ErrPersistence,
		Message: "element persistence failed",
		Err:     cause,
	}
}

// NewFileAccessError creates a FileAccess error.
func NewFileAccessError(path string, cause error) *CatalogError {
	return &CatalogError{
		Code:    ErrFileAccess,
		Message: "source file could not be opened",
		Path:    path,
		Err:     cause,
	}
}

// NewVolumeError creates a Volume error for a failed backend operation.
func NewVolumeError(operation, path string, cause error) *CatalogError {
	return &CatalogError{
		Code:    ErrVolume,
		Message: fmt.Sprintf("volume backend %s failed", operation),
		Path:    path,
		Err:     cause,
	}
}

// NewPermissionError creates a Permission error.
func NewPermissionError(permission, volumeID string) *CatalogError {
	return &CatalogError{
		Code:    ErrPermission,
		Message: fmt.Sprintf("permission %q denied on volume %s", permission, volumeID),
	}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// CodeOf returns the classification code of err, or 0 when err is not a
// CatalogError (wrapped ones included).
func CodeOf(err error) ErrorCode {
	var cerr *CatalogError
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return 0
}

// IsLogicError reports whether err is a Logic error.
func IsLogicError(err error) bool { return CodeOf(err) == ErrLogic }

// IsConflictError reports whether err is a Conflict error.
func IsConflictError(err error) bool { return CodeOf(err) == ErrConflict }

// IsBackendConflictError reports whether err is a BackendConflict error.
func IsBackendConflictError(err error) bool { return CodeOf(err) == ErrBackendConflict }

// IsValidationError reports whether err is a Validation error.
func IsValidationError(err error) bool { return CodeOf(err) == ErrValidation }

// IsCancelledError reports whether err is a Cancelled error.
func IsCancelledError(err error) bool { return CodeOf(err) == ErrCancelled }

// IsMissingEntityError reports whether err is a MissingEntity error.
func IsMissingEntityError(err error) bool { return CodeOf(err) == ErrMissingEntity }

// IsPersistenceError reports whether err is a Persistence error.
func IsPersistenceError(err error) bool { return CodeOf(err) == ErrPersistence }

// IsFileAccessError reports whether err is a FileAccess error.
func IsFileAccessError(err error) bool { return CodeOf(err) == ErrFileAccess }

// IsVolumeError reports whether err is a Volume error.
func IsVolumeError(err error) bool { return CodeOf(err) == ErrVolume }

// IsPermissionError reports whether err is a Permission error.
func IsPermissionError(err error) bool { return CodeOf(err) == ErrPermission }
