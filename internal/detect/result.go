package detect

import (
	"context"
)

// Result is what a category orchestrator hands back: resolved records and
// the diagnostics gathered on the way. It is valid even when empty.
type Result[T any] struct {
	Records   []T
	Errors    []*Error
	Conflicts []Conflict
}

// Resolve runs the chain and merges its output. It is the shared core of
// every category orchestrator.
func Resolve[P any](ctx context.Context, env Env, chain Chain[P], identity IdentityFunc[P]) ([]Entity[P], []*Error, []Conflict) {
	outcome := chain.Run(ctx, env)
	entities := Merge(outcome.Partials, identity)
	var conflicts []Conflict
	for _, e := range entities {
		conflicts = append(conflicts, e.Conflicts...)
	}
	return entities, outcome.Errors, conflicts
}
