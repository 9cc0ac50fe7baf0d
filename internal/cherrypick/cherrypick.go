// Package cherrypick drives the rewriting of one partition's commits
// onto a running parent (spec.md §4.5), consulting the Note Index to
// skip unchanged commits and delegating merge conflicts to the Conflict
// Analyzer. There's no working tree and no index involved: every commit
// is produced by composing `git merge-tree --write-tree` with
// `git commit-tree`, the same plumbing-only approach
// internal/git/merge_tree.go and commit.go already expose, rather than
// driving porcelain `git cherry-pick` against a checkout the way the
// teacher's internal/git/cherry_pick.go does — Branch Deck has no
// checkout to drive, since refs are rewritten directly.
package cherrypick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/conflict"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/noteindex"
)

// CommitStatus is the outcome of rewriting a single commit.
type CommitStatus int

// Recognized CommitStatus values.
const (
	StatusCreated CommitStatus = iota
	StatusUnchanged
	StatusUpdated
)

// Event converts a CommitStatus into its event.CommitStatus wire value.
func (s CommitStatus) Event() event.CommitStatus {
	switch s {
	case StatusUnchanged:
		return event.CommitUnchanged
	case StatusUpdated:
		return event.CommitUpdated
	default:
		return event.CommitCreated
	}
}

// Result is one commit's rewrite outcome.
type Result struct {
	Original  git.Hash
	Rewritten git.Hash
	Status    CommitStatus
}

// PartitionError reports that a partition's pick sequence stopped early
// because Commit could not be cherry-picked onto the running parent.
// Every commit after Commit in that partition is left unprocessed
// (spec.md §4.5: "subsequent commits in that partition are marked
// blocked and no further picks are attempted").
type PartitionError struct {
	Commit  git.Hash
	Blocked []git.Hash
	Err     error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("cherry-pick %s: %v", e.Commit.Short(), e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Engine drives the Cherry-Pick Engine for one partition at a time.
type Engine struct {
	repo     *git.Repository
	index    *noteindex.Index
	analyzer *conflict.Analyzer
	sink     event.Sink
}

// New builds an Engine reading and writing through repo, consulting
// index for cache hits, and reporting progress on sink.
func New(repo *git.Repository, index *noteindex.Index, sink event.Sink) *Engine {
	return &Engine{repo: repo, index: index, analyzer: conflict.New(repo), sink: sink}
}

// Run rewrites commits, in order, onto base for partition key. It
// returns the final running parent (the tip of the rewritten chain),
// the per-commit results produced before any failure, and an error.
//
// A *PartitionError means the engine reached a conflict or a fatal
// failure on one commit and stopped; results already holds every commit
// successfully processed before it. Any other error is a failure to
// record the new mappings in the Note Index.
func (e *Engine) Run(ctx context.Context, key classify.Key, base git.Hash, commits []git.CommitRecord) (git.Hash, []Result, error) {
	parent := base
	results := make([]Result, 0, len(commits))
	var pending []noteindex.Entry

	for i, src := range commits {
		sourceParent := base
		if len(src.Parents) > 0 {
			sourceParent = src.Parents[0]
		}

		result, entry, err := e.pickOne(ctx, key, parent, sourceParent, src)
		if err != nil {
			blocked := make([]git.Hash, 0, len(commits)-i-1)
			for _, rest := range commits[i+1:] {
				blocked = append(blocked, rest.Hash)
			}
			var conflictErr *git.MergeTreeConflictError
			if errors.As(err, &conflictErr) {
				if rerr := e.index.RecordBatch(ctx, pending); rerr != nil {
					return parent, results, fmt.Errorf("cherrypick: record batch after conflict: %w", rerr)
				}
			}
			return parent, results, &PartitionError{Commit: src.Hash, Blocked: blocked, Err: err}
		}

		results = append(results, result)
		if entry != nil {
			pending = append(pending, *entry)
		}
		parent = result.Rewritten
	}

	if err := e.index.RecordBatch(ctx, pending); err != nil {
		return parent, results, fmt.Errorf("cherrypick: record batch: %w", err)
	}

	return parent, results, nil
}

// pickOne performs one commit's reuse-or-rewrite step (spec.md §4.5
// steps 2-6). entry is non-nil when a new mapping was produced that the
// caller should persist; it is nil on a cache hit, since the mapping is
// already recorded.
func (e *Engine) pickOne(
	ctx context.Context,
	key classify.Key,
	parent, sourceParent git.Hash,
	src git.CommitRecord,
) (Result, *noteindex.Entry, error) {
	cached, hit, err := e.index.Lookup(ctx, src.Hash, parent)
	if err != nil {
		return Result{}, nil, fmt.Errorf("note index lookup: %w", err)
	}

	tree, mergeErr := e.repo.MergeTree(ctx, git.MergeTreeRequest{
		MergeBase: sourceParent.String(),
		Branch1:   parent.String(),
		Branch2:   src.Hash.String(),
	})

	var conflictErr *git.MergeTreeConflictError
	if mergeErr != nil && !errors.As(mergeErr, &conflictErr) {
		return Result{}, nil, fmt.Errorf("merge-tree: %w", mergeErr)
	}

	if hit && conflictErr == nil {
		if cachedTree, terr := e.repo.PeelToTree(ctx, cached.String()); terr == nil && cachedTree == tree {
			e.sink.Emit(event.NewCommitSynced(key, src.Hash, cached, event.CommitUnchanged))
			return Result{Original: src.Hash, Rewritten: cached, Status: StatusUnchanged}, nil, nil
		}
	}

	if conflictErr != nil {
		e.sink.Emit(event.NewBranchStatusUpdate(key, event.BranchAnalyzingConflict))
		artifact, aerr := e.analyzer.Analyze(ctx, parent, sourceParent, src.Hash, conflictErr)
		if aerr != nil {
			return Result{}, nil, fmt.Errorf("analyze conflict: %w", aerr)
		}
		e.sink.Emit(event.NewCommitConflictError(key, src.Hash, artifact))
		return Result{}, nil, conflictErr
	}

	message := rewriteMessage(key, src.Subject, src.Body)
	rewritten, err := e.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:    tree,
		Message: message,
		Parents: []git.Hash{parent},
		Author: &git.Signature{
			Name:  src.Author.Name,
			Email: src.Author.Email,
			Time:  time.Unix(src.Time, 0),
		},
	})
	if err != nil {
		return Result{}, nil, fmt.Errorf("commit-tree: %w", err)
	}

	status := StatusCreated
	if hit {
		status = StatusUpdated
	}
	e.sink.Emit(event.NewCommitSynced(key, src.Hash, rewritten, status.Event()))

	return Result{Original: src.Hash, Rewritten: rewritten, Status: status},
		&noteindex.Entry{Original: src.Hash, Parent: parent, Rewritten: rewritten},
		nil
}

// rewriteMessage strips the grouping prefix consumed by classification
// from the subject, retaining the issue id, body, and any trailers.
func rewriteMessage(key classify.Key, subject, body string) string {
	subject = classify.StripPrefix(subject, key)
	if body == "" {
		return subject
	}
	return subject + "\n\n" + body
}
