package branchdeck

import (
	"context"

	"github.com/charmbracelet/log"

	"go.branchdeck.dev/engine/internal/git"
)

// refWriter serializes virtual branch ref updates through a single
// long-lived `git update-ref --stdin` process, per spec.md §4.9 step 4
// ("a dedicated writer drains the queue ... so at most one ref-update
// process runs at a time"). If that process can't be started, it falls
// back to one-at-a-time `git update-ref` invocations on the same
// goroutine, which is still serialized, just not batched.
type refWriter struct {
	requests chan refUpdateRequest
	done     chan struct{}
}

type refUpdateRequest struct {
	ref     string
	hash    git.Hash
	oldHash git.Hash
	result  chan<- error
}

// newRefWriter starts the writer goroutine and returns immediately.
func newRefWriter(ctx context.Context, repo *git.Repository, logger *log.Logger) *refWriter {
	rw := &refWriter{
		requests: make(chan refUpdateRequest),
		done:     make(chan struct{}),
	}
	go rw.run(ctx, repo, logger)
	return rw
}

func (rw *refWriter) run(ctx context.Context, repo *git.Repository, logger *log.Logger) {
	defer close(rw.done)

	updater, err := repo.UpdateRefStdin(ctx)
	if err != nil {
		logger.Warn("update-ref --stdin unavailable, falling back to one-at-a-time ref writes", "error", err)
		for req := range rw.requests {
			req.result <- repo.SetRef(ctx, git.SetRefRequest{
				Ref: req.ref, Hash: req.hash, OldHash: req.oldHash,
			})
		}
		return
	}

	for req := range rw.requests {
		req.result <- updater.Update(req.ref, req.hash, req.oldHash)
	}

	// Individual queued writes only report pipe I/O errors; the batch's
	// actual ref-update outcome is known only here, at process exit. By
	// this point every queued update belongs to a partition whose picks
	// already fully succeeded (spec.md §3: refs are only enqueued after
	// that), so a batch failure is logged rather than attributed back to
	// a specific partition's already-reported status.
	if err := updater.Close(); err != nil {
		logger.Warn("ref update batch failed", "error", err)
	}
}

// update queues a single ref write and blocks until it's been handed to
// the writer (not until the batch is committed).
func (rw *refWriter) update(ref string, hash, oldHash git.Hash) error {
	result := make(chan error, 1)
	rw.requests <- refUpdateRequest{ref: ref, hash: hash, oldHash: oldHash, result: result}
	return <-result
}

// close stops accepting writes and waits for the writer to commit the
// batch.
func (rw *refWriter) close() {
	close(rw.requests)
	<-rw.done
}
