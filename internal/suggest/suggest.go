// Package suggest defines the port through which an external
// suggestion model, if any, proposes grouping prefixes for commits the
// Classifier left unassigned. No concrete implementation ships here;
// see [go.branchdeck.dev/engine/internal/suggest/suggesttest] for a
// deterministic test double.
package suggest

import (
	"context"

	"go.branchdeck.dev/engine/internal/git"
)

// Provider proposes a grouping prefix for each of the given commits.
// The returned map need not cover every commit; commits it omits are
// left unassigned. Implementations must not mutate commits and should
// treat ctx cancellation as a request to return early with whatever
// suggestions are already in hand plus ctx.Err().
type Provider interface {
	Suggest(ctx context.Context, commits []git.CommitRecord) (map[git.Hash]string, error)
}
