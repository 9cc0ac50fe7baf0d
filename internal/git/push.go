package git

import (
	"context"
	"errors"
	"fmt"
)

// PushOptions specifies options for the Push operation.
type PushOptions struct {
	// Remote is the remote to push to.
	//
	// If empty, git push gets no repository argument:
	// Push fails when Refspec is also empty,
	// and otherwise Refspec is the first argument git push sees.
	Remote string

	// ForceWithLease indicates that a push should overwrite a ref
	// even if the new value is not a descendant of the current value
	// provided that our knowledge of the current value is up-to-date.
	ForceWithLease string

	// Force indicates that a push should overwrite a ref unconditionally.
	//
	// Prefer ForceWithLease where possible.
	Force bool

	// NoVerify skips the pre-push hook.
	NoVerify bool

	// Refspec is the refspec to push.
	// If empty, the current branch is pushed to the remote.
	Refspec string // TODO: Refspec type?
}

// Push pushes objects and refs to a remote repository.
func (r *Repository) Push(ctx context.Context, opts PushOptions) error {
	if opts.Remote == "" && opts.Refspec == "" {
		return errors.New("push: no remote or refspec specified")
	}

	args := []string{"push"}
	switch {
	case opts.ForceWithLease != "":
		args = append(args, "--force-with-lease="+opts.ForceWithLease)
	case opts.Force:
		args = append(args, "--force")
	}
	if opts.NoVerify {
		args = append(args, "--no-verify")
	}
	if opts.Remote != "" {
		args = append(args, opts.Remote)
	}
	if opts.Refspec != "" {
		args = append(args, opts.Refspec)
	}

	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	return nil
}
