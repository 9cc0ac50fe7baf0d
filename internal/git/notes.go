package git

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// Notes accesses the Git notes associated with a repository.
type Notes struct {
	r    *Repository
	ref  string
	exec execer
}

// Notes returns a Notes instance for the given ref.
// If ref is empty, the default ref "refs/notes/commits" is used.
func (r *Repository) Notes(ref string) *Notes {
	if ref == "" {
		ref = "refs/notes/commits"
	}

	return &Notes{
		r:    r,
		ref:  ref,
		exec: r.exec,
	}
}

// AddNoteOptions configures the behavior of Notes.Add.
type AddNoteOptions struct {
	// Force indicates whether to overwrite an existing note.
	// If false, an error will be returned if a note already exists.
	Force bool
}

// Add adds note msg to object obj.
//
// Fails if a note already exists.
// Overwrite with opts.Force.
func (n *Notes) Add(ctx context.Context, obj, msg string, opts *AddNoteOptions) error {
	if opts == nil {
		opts = &AddNoteOptions{}
	}

	args := make([]string, 0, 8)
	args = append(args, "notes", "--ref", n.ref)
	args = append(args, "add")
	if opts.Force {
		args = append(args, "-f")
	}
	args = append(args, "-m", msg, obj)
	return n.r.gitCmd(ctx, args...).Run(n.exec)
}

// Show returns the contents of the note associated with obj, if any.
func (n *Notes) Show(ctx context.Context, obj string) (string, error) {
	return n.r.gitCmd(ctx, "notes", "--ref", n.ref, "show", obj).OutputString(n.exec)
}

// AddBatch records many (object, message) notes in a single notes-tree
// rewrite: one `hash-object` per new blob, one `mktree`, one `commit-tree`,
// one `update-ref` — instead of one `git notes add` subprocess per pair.
// Callers serialize calls to AddBatch for a given ref themselves (see
// internal/noteindex's single-writer guard); this method does not lock.
func (n *Notes) AddBatch(ctx context.Context, notes map[string]string) error {
	if len(notes) == 0 {
		return nil
	}

	existing, err := n.listEntries(ctx)
	if err != nil {
		return fmt.Errorf("list existing notes: %w", err)
	}

	for obj, msg := range notes {
		blob, err := n.r.WriteObject(ctx, BlobType, strings.NewReader(msg))
		if err != nil {
			return fmt.Errorf("write note blob for %s: %w", obj, err)
		}
		existing[obj] = blob
	}

	tree, err := n.makeNotesTree(ctx, existing)
	if err != nil {
		return fmt.Errorf("build notes tree: %w", err)
	}

	var parents []Hash
	if tip, err := n.r.revParse(ctx, n.ref+"^{commit}"); err == nil {
		parents = []Hash{tip}
	}

	commit, err := n.r.CommitTree(ctx, CommitTreeRequest{
		Tree:    tree,
		Message: "notes batch update",
		Parents: parents,
	})
	if err != nil {
		return fmt.Errorf("commit notes tree: %w", err)
	}

	var oldHash Hash
	if len(parents) > 0 {
		oldHash = parents[0]
	}
	return n.r.SetRef(ctx, SetRefRequest{
		Ref:     n.ref,
		Hash:    commit,
		OldHash: oldHash,
	})
}

// listEntries returns the full set of object -> note-blob mappings
// currently recorded on this notes ref.
func (n *Notes) listEntries(ctx context.Context) (map[string]Hash, error) {
	entries := make(map[string]Hash)

	out, err := n.r.gitCmd(ctx, "notes", "--ref", n.ref, "list").OutputString(n.exec)
	if err != nil {
		// No notes ref yet is not an error; treat as empty.
		return entries, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		note, obj, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		entries[obj] = Hash(note)
	}
	return entries, scanner.Err()
}

// makeNotesTree builds a flat notes tree (no SHA-prefix fanout) mapping
// each object's full hex name to its note blob.
func (n *Notes) makeNotesTree(ctx context.Context, entries map[string]Hash) (Hash, error) {
	cmd := n.r.gitCmd(ctx, "mktree")
	var stdin strings.Builder
	for obj, blob := range entries {
		fmt.Fprintf(&stdin, "%s %s %s\t%s\n", RegularMode, BlobType, blob, obj)
	}
	cmd = cmd.StdinString(stdin.String())

	out, err := cmd.OutputChomp(n.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("mktree: %w", err)
	}
	return Hash(out), nil
}
