// Package suggesttest provides a deterministic [suggest.Provider] test
// double.
package suggesttest

import (
	"context"

	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/suggest"
)

// Static is a [suggest.Provider] that returns a fixed set of
// suggestions, keyed by commit hash, for those of the commits it is
// passed that have an entry.
type Static struct {
	Suggestions map[git.Hash]string
	Err         error
}

var _ suggest.Provider = (*Static)(nil)

// Suggest returns a copy of s.Suggestions restricted to the hashes
// present in commits, or s.Err if non-nil.
func (s *Static) Suggest(_ context.Context, commits []git.CommitRecord) (map[git.Hash]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	out := make(map[git.Hash]string, len(commits))
	for _, c := range commits {
		if prefix, ok := s.Suggestions[c.Hash]; ok {
			out[c.Hash] = prefix
		}
	}
	return out, nil
}
