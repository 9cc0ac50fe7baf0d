package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
)

// TreeEntry is a single entry in a Git tree listing.
type TreeEntry struct {
	Mode Mode
	Type Type
	Hash Hash
	Name string
}

// ListTreeOptions configures Repository.ListTree.
type ListTreeOptions struct {
	// Recurse lists entries in subtrees as well, rather than just the
	// immediate children of the given tree.
	Recurse bool
}

// ListTree lists the entries of a tree object, used to inspect the result
// of a MergeTree or CommitTree call without touching the working tree.
func (r *Repository) ListTree(ctx context.Context, tree Hash, opts ListTreeOptions) iter.Seq2[TreeEntry, error] {
	args := []string{"ls-tree", "--full-tree"}
	if opts.Recurse {
		args = append(args, "-r")
	}
	args = append(args, tree.String())

	cmd := r.gitCmd(ctx, args...)

	return func(yield func(TreeEntry, error) bool) {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(TreeEntry{}, fmt.Errorf("pipe stdout: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(TreeEntry{}, fmt.Errorf("start ls-tree: %w", err))
			return
		}

		var finished bool
		defer func() {
			if !finished {
				_ = cmd.Kill(r.exec)
				_, _ = io.Copy(io.Discard, stdout)
			}
		}()

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Bytes()

			// ls-tree output is in the form:
			//   <mode> SP <type> SP <hash> TAB <name> NL
			modeTypeHash, name, ok := bytes.Cut(line, []byte{'\t'})
			if !ok {
				r.log.Warn("ls-tree: skipping invalid line", "line", string(line))
				continue
			}

			toks := bytes.SplitN(modeTypeHash, []byte{' '}, 3)
			if len(toks) != 3 {
				r.log.Warn("ls-tree: skipping invalid line", "line", string(line))
				continue
			}

			mode, err := ParseMode(string(toks[0]))
			if err != nil {
				r.log.Warn("ls-tree: skipping invalid mode", "mode", string(toks[0]), "error", err)
				continue
			}

			if !yield(TreeEntry{
				Mode: mode,
				Type: Type(toks[1]),
				Hash: Hash(toks[2]),
				Name: string(name),
			}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(TreeEntry{}, fmt.Errorf("scan: %w", err))
			return
		}

		if err := cmd.Wait(r.exec); err != nil {
			yield(TreeEntry{}, fmt.Errorf("wait: %w", err))
			return
		}
		finished = true
	}
}
