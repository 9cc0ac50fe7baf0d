package branchdeck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nightlyone/lockfile"
	"golang.org/x/sync/errgroup"

	"go.branchdeck.dev/engine/internal/cherrypick"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/sliceutil"
)

// now is the wall clock used to stamp archived branches' date component.
// Overridable in tests via go.abhg.dev/testing/stub.
var now = time.Now

// Sync drives one full synchronization run (spec.md §4.9 steps 1-7) and
// emits events describing its progress through the sink passed to New.
// It returns nil on a successful run, including one where individual
// partitions failed or hit conflicts — those are reported as events,
// per spec.md §7 ("the terminal result value is ok unless a
// configuration or driver error aborts the run"). A [*ConfigError] or
// [*DriverError] aborts the whole run.
func (e *Engine) Sync(ctx context.Context) error {
	userPrefix, err := e.resolveUserPrefix(ctx)
	if err != nil {
		return err
	}

	lock, err := lockfile.New(filepath.Join(e.repo.GitDir(), "branchdeck.lock"))
	if err != nil {
		return &DriverError{Op: "create lock handle", Err: err}
	}
	if err := lock.TryLock(); err != nil {
		return &DriverError{Op: "acquire run lock (another sync may be in progress)", Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	mainlineBranch, err := e.repo.RemoteDefaultBranch(ctx, e.options.Remote)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("resolve default branch of remote %q: %v", e.options.Remote, err)}
	}
	mainlineRef := "refs/remotes/" + e.options.Remote + "/" + mainlineBranch

	mainline, err := e.repo.PeelToCommit(ctx, mainlineRef)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("resolve mainline ref %q: %v", mainlineRef, err)}
	}

	commits, err := sliceutil.CollectErr(e.repo.EnumerateCommits(ctx, mainlineRef, "HEAD"))
	if err != nil {
		return &DriverError{Op: "enumerate commits", Err: err}
	}

	partitions, unassigned := groupCommits(commits)
	e.sink.Emit(event.NewBranchesGrouped(partitions))

	if e.Suggest != nil && len(unassigned) > 0 {
		if suggestions, serr := e.Suggest.Suggest(ctx, unassigned); serr != nil {
			e.log.Warn("suggestion provider failed", "error", serr)
		} else {
			for hash, prefix := range suggestions {
				e.log.Debug("suggested partition", "commit", hash.Short(), "prefix", prefix)
			}
		}
	}
	e.sink.Emit(event.NewUnassignedCommits(unassigned))

	userEmail, err := e.resolveUserEmail(ctx)
	if err != nil {
		e.log.Warn("could not resolve user.email; remote status will not attribute commits", "error", err)
	}

	writer := newRefWriter(ctx, e.repo, e.log)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.options.WorkerCount)

	archiveDate := now().UTC().Format("2006-01-02")
	group.Go(func() error {
		if _, err := e.integration.Detect(gctx, userPrefix, mainline, archiveDate); err != nil {
			return fmt.Errorf("integration detection: %w", err)
		}
		return nil
	})

	for _, partition := range partitions {
		group.Go(func() error {
			return e.syncPartition(gctx, userPrefix, mainline, partition, writer, userEmail)
		})
	}

	err = group.Wait()
	writer.close()
	if err != nil {
		return &DriverError{Op: "sync", Err: err}
	}

	e.sink.Emit(event.NewCompleted())
	return nil
}

// syncPartition cherry-picks one partition's commits onto mainline,
// advances its virtual ref on success, and probes remote status
// afterward (spec.md §4.9 steps 3-6). It never returns an error for a
// per-partition failure; those are reported entirely through events,
// so that one partition's conflict doesn't abort the others sharing
// this errgroup.
func (e *Engine) syncPartition(
	ctx context.Context,
	userPrefix string,
	mainline git.Hash,
	partition event.Partition,
	writer *refWriter,
	userEmail string,
) error {
	key := partition.Key
	e.sink.Emit(event.NewBranchStatusUpdate(key, event.BranchSyncing))

	vb := VirtualBranch{UserPrefix: userPrefix, Key: key}
	ref := vb.Ref()

	tip, _, err := e.cherrypick.Run(ctx, key, mainline, partition.Commits)
	if err != nil {
		var partitionErr *cherrypick.PartitionError
		if errors.As(err, &partitionErr) {
			var conflictErr *git.MergeTreeConflictError
			status := event.BranchError
			if errors.As(partitionErr.Err, &conflictErr) {
				status = event.BranchMergeConflict
			} else {
				e.sink.Emit(event.NewCommitError(key, partitionErr.Commit, partitionErr.Err.Error()))
			}
			for _, blocked := range partitionErr.Blocked {
				e.sink.Emit(event.NewCommitSynced(key, blocked, "", event.CommitBlocked))
			}
			e.sink.Emit(event.NewBranchStatusUpdate(key, status))
			return nil
		}
		e.sink.Emit(event.NewCommitError(key, git.Hash(""), err.Error()))
		e.sink.Emit(event.NewBranchStatusUpdate(key, event.BranchError))
		return nil
	}

	existing, existsErr := e.repo.PeelToCommit(ctx, ref)
	created := existsErr != nil
	oldHash := existing
	if created {
		oldHash = git.ZeroHash
	}

	if err := writer.update(ref, tip, oldHash); err != nil {
		e.sink.Emit(event.NewBranchStatusUpdate(key, event.BranchError))
		return nil
	}

	status := event.BranchUpdated
	switch {
	case created:
		status = event.BranchCreated
	case existing == tip:
		status = event.BranchUnchanged
	}
	e.sink.Emit(event.NewBranchStatusUpdate(key, status))

	if _, err := e.remote.Check(ctx, key, ref, userEmail); err != nil {
		e.log.Warn("remote status check failed", "branch", key, "error", err)
	}

	return nil
}
