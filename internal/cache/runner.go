package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sigreer/hwsnap/internal/source"
)

// Runner memoizes successful command output. Categories that probe the
// same program with the same arguments (lspci for GPUs and NICs) share one
// execution; concurrent identical calls wait for the one in flight.
// Failures are never cached.
type Runner struct {
	next  source.Runner
	ttl   time.Duration
	cache *Cache[source.Result]
	group singleflight.Group
}

// NewRunner wraps next, keeping results for ttl.
func NewRunner(next source.Runner, ttl time.Duration) *Runner {
	return &Runner{
		next:  next,
		ttl:   ttl,
		cache: New[source.Result](),
	}
}

// Execute runs the command once per key. The shared execution does not
// inherit the first caller's cancellation; a caller whose context ends
// stops waiting without failing the others.
func (r *Runner) Execute(ctx context.Context, program string, args []string, timeout time.Duration) (source.Result, error) {
	key := program + "\x00" + strings.Join(args, "\x00")
	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		res, err := r.next.Execute(context.WithoutCancel(ctx), program, args, timeout)
		if err == nil {
			r.cache.Set(key, res, r.ttl)
		}
		return res, err
	})
	select {
	case out := <-ch:
		return out.Val.(source.Result), out.Err
	case <-ctx.Done():
		return source.Result{ExitCode: -1}, fmt.Errorf("%s: %w", program, source.ErrTimeout)
	}
}
