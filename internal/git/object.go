package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.branchdeck.dev/engine/internal/must"
)

// Type specifies the type of a Git object.
type Type string

// Supported object types.
const (
	BlobType   Type = "blob"
	CommitType Type = "commit"
	TreeType   Type = "tree"
)

func (t Type) String() string {
	return string(t)
}

// ReadObject reads the object with the given hash from the repository
// into the given writer.
func (r *Repository) ReadObject(ctx context.Context, typ Type, hash Hash, dst io.Writer) error {
	must.NotBeBlankf(string(typ), "object type must not be blank")
	must.NotBeBlankf(string(hash), "object hash must not be blank")

	cmd := r.gitCmd(ctx, "cat-file", string(typ), hash.String()).Stdout(dst)
	if err := cmd.Run(r.exec); err != nil {
		return fmt.Errorf("cat-file: %w", err)
	}
	return nil
}

// WriteObject writes an object of the given type to the repository,
// and returns the hash of the written object.
func (r *Repository) WriteObject(ctx context.Context, typ Type, src io.Reader) (Hash, error) {
	must.NotBeBlankf(string(typ), "object type must not be blank")

	cmd := r.gitCmd(ctx, "hash-object", "-w", "--stdin", "-t", string(typ)).Stdin(src)
	out, err := cmd.OutputChomp(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("hash-object: %w", err)
	}
	return Hash(out), nil
}

// CatFileEntry is a single result from CatFileBatch.
type CatFileEntry struct {
	Hash    Hash
	Type    Type
	Size    int64
	Content []byte

	// Missing is true when the requested object does not exist.
	Missing bool
}

// CatFileBatch resolves many objects in a single `git cat-file --batch`
// invocation, avoiding one subprocess per object. Used by the Conflict
// Analyzer's bulk commit-info prefetch, where resolving N conflicted
// files' commit metadata one at a time would dominate wall time.
func (r *Repository) CatFileBatch(ctx context.Context, hashes []Hash) (map[Hash]CatFileEntry, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	cmd := r.gitCmd(ctx, "cat-file", "--batch")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start cat-file --batch: %w", err)
	}

	go func() {
		for _, h := range hashes {
			if _, err := fmt.Fprintln(stdin, h.String()); err != nil {
				break
			}
		}
		_ = stdin.Close()
	}()

	result := make(map[Hash]CatFileEntry, len(hashes))
	reader := bufio.NewReader(stdout)
	for range hashes {
		header, err := reader.ReadString('\n')
		if err != nil {
			_ = cmd.Kill(r.exec)
			return nil, fmt.Errorf("read cat-file header: %w", err)
		}
		header = strings.TrimSuffix(header, "\n")

		if rest, ok := strings.CutSuffix(header, " missing"); ok {
			hash := Hash(rest)
			result[hash] = CatFileEntry{Hash: hash, Missing: true}
			continue
		}

		fields := strings.Fields(header)
		if len(fields) != 3 {
			_ = cmd.Kill(r.exec)
			return nil, fmt.Errorf("unexpected cat-file header: %q", header)
		}

		hash := Hash(fields[0])
		typ := Type(fields[1])
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			_ = cmd.Kill(r.exec)
			return nil, fmt.Errorf("parse object size %q: %w", fields[2], err)
		}

		content := make([]byte, size)
		if _, err := io.ReadFull(reader, content); err != nil {
			_ = cmd.Kill(r.exec)
			return nil, fmt.Errorf("read object content: %w", err)
		}
		if _, err := reader.Discard(1); err != nil { // trailing newline after content
			_ = cmd.Kill(r.exec)
			return nil, fmt.Errorf("discard trailing newline: %w", err)
		}

		result[hash] = CatFileEntry{Hash: hash, Type: typ, Size: size, Content: content}
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("cat-file --batch: %w", err)
	}

	return result, nil
}

// PatchID is the stable patch identity produced by `git patch-id --stable`,
// invariant under rebase and re-signing. Used by the Integration Detector
// to recognize a virtual branch's commits after they've been merged,
// rebased, or squashed upstream.
type PatchID string

// PatchID computes the patch id of a single commit.
func (r *Repository) PatchID(ctx context.Context, commit Hash) (PatchID, error) {
	ids, err := r.PatchIDBatch(ctx, []Hash{commit})
	if err != nil {
		return "", err
	}
	return ids[commit], nil
}

// PatchIDBatch computes patch ids for many commits in a single pipeline:
// `git show` streams concatenated patches into `git patch-id --stable`,
// which annotates each with the originating commit hash. This is the
// batched form spec.md's integration detection relies on rather than one
// `git patch-id` invocation per commit.
func (r *Repository) PatchIDBatch(ctx context.Context, commits []Hash) (map[Hash]PatchID, error) {
	if len(commits) == 0 {
		return nil, nil
	}

	showArgs := make([]string, 0, len(commits)+3)
	showArgs = append(showArgs, "show", "--no-color", "-p", "--format=commit %H")
	for _, c := range commits {
		showArgs = append(showArgs, c.String())
	}

	pipeR, pipeW := io.Pipe()
	showCmd := r.gitCmd(ctx, showArgs...).Stdout(pipeW)
	patchIDCmd := r.gitCmd(ctx, "patch-id", "--stable").Stdin(pipeR)

	var out bytes.Buffer
	patchIDCmd.Stdout(&out)

	if err := showCmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("git show: %w", err)
	}
	if err := patchIDCmd.Start(r.exec); err != nil {
		_ = showCmd.Kill(r.exec)
		return nil, fmt.Errorf("git patch-id: %w", err)
	}

	showErr := make(chan error, 1)
	go func() {
		err := showCmd.Wait(r.exec)
		_ = pipeW.Close()
		showErr <- err
	}()

	if err := patchIDCmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("git patch-id: %w", err)
	}
	if err := <-showErr; err != nil {
		return nil, fmt.Errorf("git show: %w", err)
	}

	result := make(map[Hash]PatchID, len(commits))
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		result[Hash(fields[1])] = PatchID(fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan patch-id output: %w", err)
	}

	return result, nil
}
