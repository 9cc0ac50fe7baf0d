// Package noteindex is the content-addressed cache the Cherry-Pick
// Engine consults before re-committing a commit onto a given running
// parent (spec.md §4.4/§7): the same (original commit, intended parent)
// pair always produces the same rewritten commit, so a previous run's
// result can be reused verbatim instead of invoking git a second time.
//
// The cache lives entirely in the repository itself, as a git notes
// tree, rather than behind a separate cache library: no example repo
// wires a dedicated cache package, and git notes already give
// content-addressing, durability, and atomic batch updates for free.
package noteindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

// Ref is the notes ref the index is stored under.
const Ref = "refs/notes/branch-deck-mapping"

// Entry is one (original, intended parent) -> rewritten commit mapping.
type Entry struct {
	Original  git.Hash
	Parent    git.Hash
	Rewritten git.Hash
}

// Index is the cache itself.
//
// Lookup is lock-free: it always resolves the notes ref fresh, so
// concurrent cherry-picks on independent partitions never block each
// other reading the cache. RecordBatch is the only writer and serializes
// itself with a single mutex, matching internal/git/notes.go's AddBatch,
// which expects callers to serialize their own writes to a given ref.
type Index struct {
	notes *git.Notes
	repo  *git.Repository
	sink  event.Sink

	mu sync.Mutex
}

// New builds an Index backed by repo's branch-deck-mapping notes ref.
// sink, if non-nil, receives a NoteIndexInconsistency event whenever a
// looked-up mapping points at an object that no longer resolves.
func New(repo *git.Repository, sink event.Sink) *Index {
	return &Index{notes: repo.Notes(Ref), repo: repo, sink: sink}
}

// Lookup resolves the rewritten commit previously recorded for original
// cherry-picked onto parent, if any. A dangling rewritten hash (the
// object it names no longer resolves, e.g. after a history rewrite) is
// treated as a miss and reported through the configured Sink rather than
// returned as an error: a stale cache entry should never fail a sync
// run, only cost it a redundant cherry-pick.
func (idx *Index) Lookup(ctx context.Context, original, parent git.Hash) (git.Hash, bool, error) {
	content, err := idx.notes.Show(ctx, original.String())
	if err != nil {
		return git.ZeroHash, false, nil
	}

	entries, err := parseEntries(content)
	if err != nil {
		return git.ZeroHash, false, fmt.Errorf("noteindex: parse note for %s: %w", original.Short(), err)
	}

	rewritten, ok := entries[parent]
	if !ok {
		return git.ZeroHash, false, nil
	}

	if _, err := idx.repo.PeelToCommit(ctx, rewritten.String()); err != nil {
		if idx.sink != nil {
			idx.sink.Emit(event.NewNoteIndexInconsistency(original, parent, rewritten, "rewritten commit no longer resolves"))
		}
		return git.ZeroHash, false, nil
	}

	return rewritten, true, nil
}

// RecordBatch persists every entry, merging with whatever mappings are
// already recorded for each original commit rather than overwriting
// them: a given original commit can legitimately be rewritten onto
// several different parents across runs, for instance when two
// partitions both cherry-pick the same upstream commit.
func (idx *Index) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	byOriginal := make(map[git.Hash][]Entry, len(entries))
	for _, e := range entries {
		byOriginal[e.Original] = append(byOriginal[e.Original], e)
	}

	notes := make(map[string]string, len(byOriginal))
	for original, group := range byOriginal {
		existing := map[git.Hash]git.Hash{}
		if content, err := idx.notes.Show(ctx, original.String()); err == nil {
			if parsed, perr := parseEntries(content); perr == nil {
				existing = parsed
			}
		}
		for _, e := range group {
			existing[e.Parent] = e.Rewritten
		}
		notes[original.String()] = serializeEntries(existing)
	}

	if err := idx.notes.AddBatch(ctx, notes); err != nil {
		return fmt.Errorf("noteindex: record batch: %w", err)
	}
	return nil
}

func parseEntries(content string) (map[git.Hash]git.Hash, error) {
	entries := make(map[git.Hash]git.Hash)
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed note entry %q", line)
		}
		entries[git.Hash(fields[0])] = git.Hash(fields[1])
	}
	return entries, nil
}

func serializeEntries(entries map[git.Hash]git.Hash) string {
	var b strings.Builder
	for parent, rewritten := range entries {
		fmt.Fprintf(&b, "%s %s\n", parent, rewritten)
	}
	return b.String()
}
