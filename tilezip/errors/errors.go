package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes for tilezip operations
const (
	CodeOutOfBounds       = "OUT_OF_BOUNDS"
	CodeFetchFailed       = "FETCH_FAILED"
	CodeEntryNotFound     = "ENTRY_NOT_FOUND"
	CodeInvalidResolution = "INVALID_RESOLUTION"
	CodeManifestFetch     = "MANIFEST_FETCH_FAILED"
	CodeLocationNotFound  = "LOCATION_NOT_FOUND"
	CodeInvalidLocation   = "INVALID_LOCATION"
	CodeInvalidPath       = "INVALID_PATH"
)

var (
	// ErrOutOfBounds is returned when a read would run past the end of a buffer
	ErrOutOfBounds = &TilezipError{Code: CodeOutOfBounds, Message: "read out of bounds"}

	// ErrFetchFailed is returned when a byte-range request does not yield the requested span
	ErrFetchFailed = &TilezipError{Code: CodeFetchFailed, Message: "range fetch failed"}

	// ErrEntryNotFound is returned when no central directory entry matches the identifier
	ErrEntryNotFound = &TilezipError{Code: CodeEntryNotFound, Message: "entry not found"}

	// ErrInvalidResolution is returned when a resolved offset or size is unusable
	ErrInvalidResolution = &TilezipError{Code: CodeInvalidResolution, Message: "invalid resolved object"}

	// ErrManifestFetch is returned when the manifest cannot be fetched or decoded
	ErrManifestFetch = &TilezipError{Code: CodeManifestFetch, Message: "failed to fetch manifest"}

	// ErrLocationNotFound is returned when the manifest has no tile archive for an issue
	ErrLocationNotFound = &TilezipError{Code: CodeLocationNotFound, Message: "archive location not found"}

	// ErrInvalidLocation is returned when an archive location carries negative offsets or sizes
	ErrInvalidLocation = &TilezipError{Code: CodeInvalidLocation, Message: "invalid archive location"}

	// ErrInvalidPath is returned when a request path cannot be split into issue and entry
	ErrInvalidPath = &TilezipError{Code: CodeInvalidPath, Message: "invalid tile path"}
)

// TilezipError represents a structured error in tilezip operations
type TilezipError struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *TilezipError) Error() string {
	if e.Cause != nil {
		if len(e.Details) > 0 {
			return fmt.Sprintf("[%s] %s (details: %v): %v", e.Code, e.Message, e.Details, e.Cause)
		}
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TilezipError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TilezipError with the same code, so that
// errors.Is(err, ErrEntryNotFound) holds for derived errors too.
func (e *TilezipError) Is(target error) bool {
	t, ok := target.(*TilezipError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause adds a cause to the error
func (e *TilezipError) WithCause(cause error) *TilezipError {
	return &TilezipError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *TilezipError) WithDetail(key string, value interface{}) *TilezipError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &TilezipError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *TilezipError) WithMessage(message string) *TilezipError {
	return &TilezipError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// NewOutOfBoundsError creates an out of bounds error for a read of length bytes at pos
func NewOutOfBoundsError(pos, length, bufferLen int) error {
	return ErrOutOfBounds.
		WithDetail("pos", pos).
		WithDetail("length", length).
		WithDetail("bufferLen", bufferLen)
}

// NewFetchError creates a fetch error carrying the requested url and inclusive byte range
func NewFetchError(url string, start, end int64, cause error) error {
	return ErrFetchFailed.
		WithDetail("url", url).
		WithDetail("start", start).
		WithDetail("end", end).
		WithCause(cause)
}

// NewEntryNotFoundError creates an entry not found error
func NewEntryNotFoundError(identifier string) error {
	return ErrEntryNotFound.WithDetail("identifier", identifier)
}

// NewInvalidResolutionError creates an invalid resolution error
func NewInvalidResolutionError(offset, size int64) error {
	return ErrInvalidResolution.
		WithDetail("offset", offset).
		WithDetail("size", size)
}

// NewManifestFetchError creates a manifest fetch error
func NewManifestFetchError(url string, cause error) error {
	return ErrManifestFetch.
		WithDetail("url", url).
		WithCause(cause)
}

// NewLocationNotFoundError creates a location not found error
func NewLocationNotFoundError(issue string) error {
	return ErrLocationNotFound.WithDetail("issue", issue)
}

// NewInvalidPathError creates an invalid path error
func NewInvalidPathError(path string) error {
	return ErrInvalidPath.WithDetail("path", path)
}

// IsTilezipError checks if err or anything it wraps is a TilezipError
func IsTilezipError(err error) bool {
	var tzErr *TilezipError
	return stderrors.As(err, &tzErr)
}

// GetErrorCode extracts the error code from the first TilezipError in err's chain
func GetErrorCode(err error) string {
	var tzErr *TilezipError
	if stderrors.As(err, &tzErr) {
		return tzErr.Code
	}
	return ""
}
