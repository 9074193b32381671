// Package sourcetest provides scripted runners and synthetic pseudo-file
// trees for tests.
package sourcetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sigreer/hwsnap/internal/source"
)

// Response is a canned reply for one command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	// Delay blocks the call until it elapses or the context is done.
	Delay time.Duration
}

// Runner replays canned responses keyed by "program arg1 arg2 ...".
// Unknown command lines behave like a missing binary.
type Runner struct {
	Responses map[string]Response

	mu    sync.Mutex
	calls []string
}

// NewRunner returns an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{Responses: make(map[string]Response)}
}

// On registers stdout for a command line and returns the runner for chaining.
func (r *Runner) On(cmdline, stdout string) *Runner {
	r.Responses[cmdline] = Response{Stdout: stdout}
	return r
}

// Fail registers an error for a command line.
func (r *Runner) Fail(cmdline string, err error) *Runner {
	r.Responses[cmdline] = Response{Err: err, ExitCode: -1}
	return r
}

// Calls returns the command lines executed so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Runner) Execute(ctx context.Context, program string, args []string, timeout time.Duration) (source.Result, error) {
	cmdline := strings.TrimSpace(program + " " + strings.Join(args, " "))
	r.mu.Lock()
	r.calls = append(r.calls, cmdline)
	resp, ok := r.Responses[cmdline]
	r.mu.Unlock()

	if !ok {
		return source.Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, source.ErrNotFound)
	}

	if resp.Delay > 0 {
		wait := resp.Delay
		if timeout > 0 && timeout < wait {
			wait = timeout
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return source.Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, source.ErrTimeout)
		}
		if wait < resp.Delay {
			return source.Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, source.ErrTimeout)
		}
	}

	res := source.Result{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.ExitCode != 0 {
		return res, &source.ExitError{Program: program, Code: resp.ExitCode, Stderr: resp.Stderr}
	}
	return res, nil
}

// Tree is a synthetic filesystem root for pseudo-file sources.
type Tree struct {
	t    testing.TB
	Root string
}

// NewTree creates an empty tree under t.TempDir().
func NewTree(t testing.TB) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// FS returns a source.FS rooted at the tree.
func (tr *Tree) FS() source.FS {
	return source.HostFS{Root: tr.Root}
}

// File writes content at an absolute host-style path inside the tree.
func (tr *Tree) File(path, content string) *Tree {
	tr.t.Helper()
	full := filepath.Join(tr.Root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		tr.t.Fatalf("writing %s: %v", path, err)
	}
	return tr
}

// Dir creates an empty directory.
func (tr *Tree) Dir(path string) *Tree {
	tr.t.Helper()
	if err := os.MkdirAll(filepath.Join(tr.Root, path), 0o755); err != nil {
		tr.t.Fatalf("creating %s: %v", path, err)
	}
	return tr
}

// Link creates a symlink at path pointing to target. Targets are stored
// verbatim, so relative sysfs-style targets such as
// ../../../0000:3b:00.0 work as they do on a live host.
func (tr *Tree) Link(path, target string) *Tree {
	tr.t.Helper()
	full := filepath.Join(tr.Root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.Symlink(target, full); err != nil {
		tr.t.Fatalf("linking %s: %v", path, err)
	}
	return tr
}
