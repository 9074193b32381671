package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecRunner runs programs with os/exec. Children are killed when their
// timeout expires or the parent context is cancelled.
type ExecRunner struct {
	// Env, when set, replaces the child environment.
	Env []string
}

// Execute runs program with args and captures its output. A missing binary
// returns ErrNotFound, an expired timeout ErrTimeout and a non-zero exit an
// *ExitError. Stdout is returned alongside an *ExitError because several
// tools print usable data before failing.
func (r ExecRunner) Execute(ctx context.Context, program string, args []string, timeout time.Duration) (Result, error) {
	path, err := exec.LookPath(program)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, ErrNotFound)
		}
		if errors.Is(err, os.ErrPermission) {
			return Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, ErrPermission)
		}
		return Result{ExitCode: -1}, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	// Force C locale so parsers see stable decimal separators and labels.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "LANG=C")
	if r.Env != nil {
		cmd.Env = r.Env
	}

	err = cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%s after %s: %w", program, timeout, ErrTimeout)
		}
		return res, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &ExitError{Program: program, Code: res.ExitCode, Stderr: stderr.String()}
		}
		if errors.Is(err, os.ErrPermission) {
			return res, fmt.Errorf("%s: %w", program, ErrPermission)
		}
		return res, fmt.Errorf("running %s: %w", program, err)
	}

	return res, nil
}
