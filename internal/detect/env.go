package detect

import (
	"context"
	"errors"
	"time"

	"github.com/sigreer/hwsnap/internal/source"
)

// Default budgets applied when Env leaves them unset.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
)

// Env is everything a detector may touch. It carries no state between
// passes and is safe to share across concurrent categories.
type Env struct {
	Runner source.Runner
	FS     source.FS
	// Root is the filesystem root FS reads from, passed to libraries
	// that read pseudo-files themselves.
	Root string

	// Timeout bounds a single subprocess or file probe.
	Timeout time.Duration
	// AttemptTimeout bounds a whole detector attempt, which may fan out
	// into several probes. Defaults to three times Timeout.
	AttemptTimeout time.Duration
	// Concurrency caps parallel detector attempts within one chain.
	Concurrency int
	// Disabled holds "<category>/<detector>" names to skip.
	Disabled map[string]bool
	// Strict makes unit contract violations panic instead of being
	// downgraded to parse failures.
	Strict bool
}

// HostEnv returns an Env that probes the live host under root.
func HostEnv(root string) Env {
	return Env{
		Runner: source.ExecRunner{},
		FS:     source.HostFS{Root: root},
		Root:   root,
	}
}

func (e Env) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e Env) attemptTimeout() time.Duration {
	if e.AttemptTimeout > 0 {
		return e.AttemptTimeout
	}
	return 3 * e.timeout()
}

func (e Env) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return DefaultConcurrency
}

func (e Env) disabled(category, name string) bool {
	return e.Disabled[category+"/"+name]
}

// Run executes program and returns its stdout. Exit codes accepted by
// accept are not treated as failures.
func (e Env) Run(ctx context.Context, program string, args ...string) (source.Output, error) {
	return e.RunAccept(ctx, nil, program, args...)
}

// RunAccept is Run with a predicate for tolerated non-zero exit codes.
func (e Env) RunAccept(ctx context.Context, accept func(code int) bool, program string, args ...string) (source.Output, error) {
	if e.Runner == nil {
		return source.Output{}, source.ErrNotFound
	}
	res, err := e.Runner.Execute(ctx, program, args, e.timeout())
	if err != nil {
		var exitErr *source.ExitError
		if !(errors.As(err, &exitErr) && accept != nil && accept(exitErr.Code)) {
			return source.Output{}, err
		}
	}
	return source.NewOutput(program, res.Stdout), nil
}

// Read returns one pseudo-file as raw output.
func (e Env) Read(path string) (source.Output, error) {
	if e.FS == nil {
		return source.Output{}, source.ErrNotFound
	}
	s, err := e.FS.ReadText(path)
	if err != nil {
		return source.Output{}, err
	}
	return source.NewOutput(path, []byte(s)), nil
}
