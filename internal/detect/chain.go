// Package detect runs prioritized detector chains for one hardware category
// and merges their partial records into resolved devices.
package detect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/source"
)

// Partial is one detector's view of one entity.
type Partial[T any] struct {
	Source   string
	Priority int
	Record   T
}

// Outcome is everything a chain pass produced: successful partial records
// in priority order, plus the failures as diagnostics.
type Outcome[T any] struct {
	Partials []Partial[T]
	Errors   []*Error
}

// Chain is the ordered detector list for one category. Every detector is
// attempted; a failure never stops the others.
type Chain[T any] struct {
	Category  string
	Detectors []Detector[T]
}

// NewChain orders detectors by priority, keeping declaration order on ties.
func NewChain[T any](category string, detectors ...Detector[T]) Chain[T] {
	ds := append([]Detector[T](nil), detectors...)
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Priority() < ds[j].Priority() })
	return Chain[T]{Category: category, Detectors: ds}
}

// Describe lists the chain for display.
func (c Chain[T]) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(c.Detectors))
	for _, d := range c.Detectors {
		out = append(out, Descriptor{
			Category: c.Category,
			Name:     d.Name(),
			Priority: d.Priority(),
			Source:   d.Source(),
		})
	}
	return out
}

type attempt[T any] struct {
	ran      bool
	records  []T
	err      error
	duration time.Duration
}

// Run attempts every enabled detector concurrently and joins. Results are
// collected per detector slot so the outcome is independent of scheduling.
func (c Chain[T]) Run(ctx context.Context, env Env) Outcome[T] {
	log := logging.FromContext(ctx)

	slots := make([]attempt[T], len(c.Detectors))
	var g errgroup.Group
	g.SetLimit(env.concurrency())
	for i, d := range c.Detectors {
		if env.disabled(c.Category, d.Name()) {
			log.Debug().Str("detector", d.Name()).Msg("detector disabled")
			continue
		}
		g.Go(func() error {
			slots[i] = c.attempt(ctx, env, d)
			return nil
		})
	}
	_ = g.Wait()

	var out Outcome[T]
	for i, d := range c.Detectors {
		slot := slots[i]
		if !slot.ran {
			continue
		}
		if slot.err != nil {
			derr := &Error{Category: c.Category, Detector: d.Name(), Kind: Classify(slot.err), Err: slot.err}
			out.Errors = append(out.Errors, derr)
			logFailure(log, derr, slot.duration)
			continue
		}

		kept := 0
		for _, rec := range slot.records {
			if verr := CheckUnits(rec); verr != nil {
				if env.Strict {
					panic(fmt.Sprintf("%s/%s: %v", c.Category, d.Name(), verr))
				}
				derr := &Error{Category: c.Category, Detector: d.Name(), Kind: ParseFailed, Err: verr}
				out.Errors = append(out.Errors, derr)
				logFailure(log, derr, slot.duration)
				continue
			}
			out.Partials = append(out.Partials, Partial[T]{Source: d.Name(), Priority: d.Priority(), Record: rec})
			kept++
		}
		log.Debug().
			Str("detector", d.Name()).
			Int("priority", d.Priority()).
			Int("records", kept).
			Dur("duration", slot.duration).
			Msg("detector attempt")
	}

	sort.SliceStable(out.Partials, func(i, j int) bool {
		return out.Partials[i].Priority < out.Partials[j].Priority
	})
	return out
}

func (c Chain[T]) attempt(ctx context.Context, env Env, d Detector[T]) attempt[T] {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, env.attemptTimeout())
	defer cancel()

	type result struct {
		records []T
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &ParseError{Format: d.Name(), Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		records, err := d.Attempt(actx, env)
		done <- result{records: records, err: err}
	}()

	select {
	case r := <-done:
		return attempt[T]{ran: true, records: r.records, err: r.err, duration: time.Since(start)}
	case <-actx.Done():
		return attempt[T]{
			ran:      true,
			err:      fmt.Errorf("%s: %w", d.Name(), source.ErrTimeout),
			duration: time.Since(start),
		}
	}
}

func logFailure(log *zerolog.Logger, err *Error, d time.Duration) {
	ev := log.Warn()
	if err.Kind == Unavailable || err.Kind == PermissionDenied {
		ev = log.Debug()
	}
	ev.Str("detector", err.Detector).
		Stringer("kind", err.Kind).
		Dur("duration", d).
		Err(err.Err).
		Msg("detector failed")
}
