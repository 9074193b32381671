// Package source runs raw probes against the host: subprocess invocations
// and pseudo-file reads. It knows nothing about hardware.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound means the program or file does not exist on this host.
	ErrNotFound = errors.New("not found")
	// ErrTimeout means the probe exceeded its wall-clock budget and was killed.
	ErrTimeout = errors.New("timed out")
	// ErrPermission means the probe needs privileges the process does not have.
	ErrPermission = errors.New("permission denied")
)

// Result is the captured outcome of one subprocess invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes external programs.
type Runner interface {
	Execute(ctx context.Context, program string, args []string, timeout time.Duration) (Result, error)
}

// FS reads pseudo-files. Paths are absolute host paths such as
// /sys/block/sda/size; implementations may relocate them under a root.
type FS interface {
	ReadText(path string) (string, error)
	ReadDir(path string) ([]string, error)
	ReadLink(path string) (string, error)
}

// Output is raw probe output plus where and when it came from.
type Output struct {
	Source string
	Data   []byte
	At     time.Time
}

// NewOutput stamps data with its source and the current time.
func NewOutput(source string, data []byte) Output {
	return Output{Source: source, Data: data, At: time.Now()}
}

func (o Output) String() string {
	return string(o.Data)
}

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Program string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Program, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Program, e.Code, msg)
}

// Unwrap lets errors.Is(err, ErrPermission) match tools that fail with
// a privilege message instead of a dedicated exit code.
func (e *ExitError) Unwrap() error {
	if deniedMessage(e.Stderr) {
		return ErrPermission
	}
	return nil
}

var deniedMarkers = []string{
	"permission denied",
	"operation not permitted",
	"must be root",
	"requires root",
	"you must have root privileges",
	"insufficient privileges",
	"could not open device at /dev/ipmi",
}

func deniedMessage(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, m := range deniedMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
