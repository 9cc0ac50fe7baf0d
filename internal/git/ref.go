package git

import (
	"context"
	"fmt"
	"strings"
)

// SetRefRequest is a request to set a ref to a new hash.
type SetRefRequest struct {
	// Ref is the name of the ref to set.
	// If the ref is a branch or tag, it should be fully qualified
	// (e.g., "refs/heads/main" or "refs/tags/v1.0").
	Ref string

	// Hash is the hash to set the ref to.
	Hash Hash

	// OldHash, if set, specifies the current value of the ref.
	// The ref will only be updated if it currently points to OldHash.
	// Set this to ZeroHash to ensure that a ref being created
	// does not already exist.
	OldHash Hash
}

// SetRef changes the value of a ref to a new hash.
//
// It optionally allows verifying the current value of the ref
// before updating it.
func (r *Repository) SetRef(ctx context.Context, req SetRefRequest) error {
	// git update-ref <rev> <newvalue> [<oldvalue>]
	args := []string{"update-ref", req.Ref, string(req.Hash)}
	if req.OldHash != "" {
		args = append(args, string(req.OldHash))
	}

	return r.gitCmd(ctx, args...).Run(r.exec)
}

// DefaultBranch reports the default branch of a remote.
// The remote must be known to the repository.
func (r *Repository) DefaultBranch(ctx context.Context, remote string) (string, error) {
	ref, err := r.gitCmd(
		ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD").
		OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("symbolic-ref: %w", err)
	}

	ref = strings.TrimPrefix(ref, remote+"/")
	return ref, nil
}

// RefUpdater is a long-lived `git update-ref --stdin` process, letting the
// orchestrator serialize many ref writes across a sync run through one
// subprocess rather than one `update-ref` invocation per virtual branch.
type RefUpdater struct {
	r     *Repository
	cmd   *gitCmd
	stdin *cmdStdinWriter
}

// UpdateRefStdin starts a `git update-ref --stdin` process. Callers write
// updates with Update/Delete and must call Close to commit them.
func (r *Repository) UpdateRefStdin(ctx context.Context) (*RefUpdater, error) {
	cmd := r.gitCmd(ctx, "update-ref", "-z", "--stdin")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdin: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start update-ref: %w", err)
	}

	return &RefUpdater{
		r:   r,
		cmd: cmd,
		stdin: &cmdStdinWriter{
			cmd:   cmd,
			exec:  r.exec,
			stdin: stdin,
		},
	}, nil
}

// Update queues a ref update. oldHash, if non-empty, guards the write
// against a concurrent change to the ref.
func (u *RefUpdater) Update(ref string, hash, oldHash Hash) error {
	_, err := fmt.Fprintf(u.stdin, "update %s\x00%s\x00%s\x00", ref, hash, oldHash)
	return err
}

// Delete queues a ref deletion.
func (u *RefUpdater) Delete(ref string, oldHash Hash) error {
	_, err := fmt.Fprintf(u.stdin, "delete %s\x00%s\x00", ref, oldHash)
	return err
}

// Close commits all queued updates atomically and waits for the process
// to exit.
func (u *RefUpdater) Close() error {
	return u.stdin.Close()
}
