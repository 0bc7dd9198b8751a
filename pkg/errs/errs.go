package errs

import (
	"fmt"
)

// Error represents a json-encoded API error.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a new error message.
func New(text string) error {
	return &Error{Message: text}
}

// ParseError is returned when a raw coverage payload is structurally malformed.
// Location points at the offending section of the payload.
type ParseError struct {
	Format   string
	Location string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parsing %s payload at %s: %v", e.Format, e.Location, e.Err)
	}
	return fmt.Sprintf("parsing %s payload: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned when an upload declares a format tag
// no parser is registered for.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported coverage format %q", e.Format)
}

// InvalidPathError is returned when a payload contains an absolute filename
// or a path-traversal segment.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid file path %q in coverage payload", e.Path)
}

// NotFoundError is returned when an org, repo, commit or report is unknown.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// EmptyReportError is returned when a report carries no file with
// executable lines, making the aggregate undefined.
type EmptyReportError struct{}

func (e *EmptyReportError) Error() string {
	return "report has no files with executable lines"
}

// ConflictError is returned when a storage constraint violation is not
// resolved by the idempotency path. It signals a bug, not routine contention.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("storage conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StorageUnavailableError is returned on transient storage failures.
// Callers may retry; upload idempotency makes the retry safe.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

var (
	// ErrInvalidLoggerInstance is returned when logger instance is not supported.
	ErrInvalidLoggerInstance = New("Invalid logger instance")
	// ErrAPIStatus is returned when a collaborator API status is not 200.
	ErrAPIStatus = New("non OK status")
	// ErrUnauthorized is returned when the SCM capability check denies access.
	ErrUnauthorized = New("access denied for org/repo")
	// GenericErrRemark returns a generic error message for user facing errors.
	GenericErrRemark = New("Unexpected error")
)
