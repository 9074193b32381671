package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigreer/hwsnap/internal/source"
)

// Kind classifies why a detector produced nothing.
type Kind int

const (
	// Unavailable: the tool or pseudo-file does not exist on this host.
	Unavailable Kind = iota + 1
	// ExecutionFailed: the probe ran but failed, exited non-zero or timed out.
	ExecutionFailed
	// ParseFailed: the probe output could not be understood.
	ParseFailed
	// PermissionDenied: the probe needs privileges this process lacks.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case ExecutionFailed:
		return "execution_failed"
	case ParseFailed:
		return "parse_failed"
	case PermissionDenied:
		return "permission_denied"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unavailable":
		*k = Unavailable
	case "execution_failed":
		*k = ExecutionFailed
	case "parse_failed":
		*k = ParseFailed
	case "permission_denied":
		*k = PermissionDenied
	default:
		return fmt.Errorf("unknown detection error kind %q", b)
	}
	return nil
}

// Error is a failed detector attempt. It is a diagnostic, never fatal.
type Error struct {
	Category string
	Detector string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s/%s: %s: %v", e.Category, e.Detector, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseError reports probe output that a parser could not interpret.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseErrorf builds a *ParseError for the named output format.
func ParseErrorf(format string, msg string, args ...any) error {
	return &ParseError{Format: format, Err: fmt.Errorf(msg, args...)}
}

// Classify maps any error returned by a detector onto a Kind.
func Classify(err error) Kind {
	var de *Error
	if errors.As(err, &de) && de.Kind != 0 {
		return de.Kind
	}
	var pe *ParseError
	switch {
	case errors.As(err, &pe):
		return ParseFailed
	case errors.Is(err, source.ErrPermission):
		return PermissionDenied
	case errors.Is(err, source.ErrNotFound):
		return Unavailable
	case errors.Is(err, source.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExecutionFailed
	}
	return ExecutionFailed
}
