package conflict

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"go.branchdeck.dev/engine/internal/git"
)

// Analyzer builds conflict artifacts for failed cherry-picks.
type Analyzer struct {
	repo *git.Repository
}

// New builds an Analyzer reading from repo.
func New(repo *git.Repository) *Analyzer {
	return &Analyzer{repo: repo}
}

// Analyze assembles an Artifact for a cherry-pick of source (whose parent
// in its own history is sourceParent) onto parent, given the conflict
// merge-tree reported.
func (a *Analyzer) Analyze(
	ctx context.Context,
	parent, sourceParent, source git.Hash,
	mergeErr *git.MergeTreeConflictError,
) (*Artifact, error) {
	base, err := a.repo.MergeBase(ctx, sourceParent.String(), parent.String())
	if err != nil {
		return nil, fmt.Errorf("conflict: merge base of %s and %s: %w", sourceParent.Short(), parent.Short(), err)
	}

	paths := make([]string, 0, len(mergeErr.Files))
	for p := range mergeErr.Filenames() {
		paths = append(paths, p)
	}

	missing, err := a.missingCommits(ctx, base, parent, paths)
	if err != nil {
		return nil, fmt.Errorf("conflict: missing commits: %w", err)
	}

	files, err := a.fileSnapshots(ctx, base, parent, source, mergeErr, paths)
	if err != nil {
		return nil, fmt.Errorf("conflict: file snapshots: %w", err)
	}

	commitInfo, err := a.commitInfoFromMarkers(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("conflict: commit info from markers: %w", err)
	}

	return &Artifact{
		MergeBase:      base,
		MissingCommits: missing,
		Files:          files,
		CommitInfo:     commitInfo,
	}, nil
}

// missingCommits finds commits reachable from parent but not source's
// ancestry (approximated here by walking base..parent, since that's the
// history the cherry-pick chain doesn't carry) that touch one of paths.
func (a *Analyzer) missingCommits(ctx context.Context, base, parent git.Hash, paths []string) ([]MissingCommit, error) {
	var out []MissingCommit
	for rec, err := range a.repo.EnumerateCommitsPaths(ctx, base.String(), parent.String(), paths) {
		if err != nil {
			return nil, err
		}

		var files []FileDiffStat
		if len(rec.Parents) > 0 {
			for fs, err := range a.repo.DiffTree(ctx, rec.Parents[0].String(), rec.Hash.String()) {
				if err != nil {
					return nil, fmt.Errorf("diff-tree %s: %w", rec.Hash.Short(), err)
				}
				if !containsPath(paths, fs.Path) {
					continue
				}
				files = append(files, FileDiffStat{Path: fs.Path, Status: fs.Status})
			}
		}

		out = append(out, MissingCommit{
			Hash:       rec.Hash,
			Author:     rec.Author,
			AuthorTime: rec.Time,
			Subject:    rec.Subject,
			Files:      files,
		})
	}
	return out, nil
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// fileSnapshots builds a FileSnapshot for each conflicted path: the three
// side's content (when present), the two diffs against base, and the
// merged markered blob for plain content conflicts.
func (a *Analyzer) fileSnapshots(
	ctx context.Context,
	base, parent, source git.Hash,
	mergeErr *git.MergeTreeConflictError,
	paths []string,
) ([]FileSnapshot, error) {
	byPath := make(map[string][]git.MergeTreeConflictFile, len(paths))
	for _, f := range mergeErr.Files {
		byPath[f.Path] = append(byPath[f.Path], f)
	}

	snapshots := make([]FileSnapshot, 0, len(paths))
	for _, path := range paths {
		snap := FileSnapshot{Path: path}

		if content, ok, err := a.blobAt(ctx, base, path); err != nil {
			return nil, err
		} else {
			snap.BasePresent, snap.BaseContent = ok, content
		}

		if content, ok, err := a.blobAt(ctx, parent, path); err != nil {
			return nil, err
		} else {
			snap.ParentPresent, snap.ParentContent = ok, content
		}

		if content, ok, err := a.blobAt(ctx, source, path); err != nil {
			return nil, err
		} else {
			snap.SourcePresent, snap.SourceContent = ok, content
		}

		snap.ParentDiff = unifiedDiff(path, snap.BaseContent, snap.ParentContent)
		snap.SourceDiff = unifiedDiff(path, snap.BaseContent, snap.SourceContent)

		// A plain content conflict has exactly one stage-0 entry for the
		// path: merge-tree already wrote the merged blob with conflict
		// markers embedded. Structural conflicts (add/add, rename/delete)
		// carry multiple staged entries instead, and have no markered text.
		if entries := byPath[path]; len(entries) == 1 && entries[0].Stage == git.ConflictStageOk {
			content, err := a.readBlob(ctx, entries[0].Object)
			if err != nil {
				return nil, err
			}
			snap.Marked = content
		}

		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

func (a *Analyzer) blobAt(ctx context.Context, treeish git.Hash, path string) (content []byte, present bool, err error) {
	hash, err := a.repo.HashAt(ctx, treeish.String(), path)
	if err != nil {
		return nil, false, nil // path absent at this tree-ish
	}
	content, err = a.readBlob(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

func (a *Analyzer) readBlob(ctx context.Context, hash git.Hash) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.repo.ReadObject(ctx, git.BlobType, hash, &buf); err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash.Short(), err)
	}
	return buf.Bytes(), nil
}

// markerHashPattern matches the hash-ish token git writes into a conflict
// marker's label when the two sides being merged were referred to by
// hash on the command line, e.g. "<<<<<<< a1b2c3d...".
var markerHashPattern = regexp.MustCompile(`(?m)^(?:<<<<<<<|\|\|\|\|\|\|\||=======|>>>>>>>) ?([0-9a-f]{7,40})`)

// commitInfoFromMarkers resolves, in one batched cat-file call, the
// metadata for every commit hash referenced by a conflict marker label
// across all file snapshots.
func (a *Analyzer) commitInfoFromMarkers(ctx context.Context, files []FileSnapshot) (map[git.Hash]CommitInfo, error) {
	seen := make(map[git.Hash]struct{})
	var hashes []git.Hash
	for _, f := range files {
		for _, m := range markerHashPattern.FindAllSubmatch(f.Marked, -1) {
			h := git.Hash(m[1])
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			hashes = append(hashes, h)
		}
	}

	if len(hashes) == 0 {
		return nil, nil
	}

	entries, err := a.repo.CatFileBatch(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("cat-file --batch: %w", err)
	}

	result := make(map[git.Hash]CommitInfo, len(entries))
	for hash, entry := range entries {
		if entry.Missing || entry.Type != git.CommitType {
			continue
		}
		info, err := parseCommitObject(hash, entry.Content)
		if err != nil {
			return nil, fmt.Errorf("parse commit object %s: %w", hash.Short(), err)
		}
		result[hash] = info
	}
	return result, nil
}
