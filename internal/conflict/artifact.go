// Package conflict builds a merge-conflict artifact out of a failed
// merge-tree: enough context (missing commits, file snapshots, diffs,
// and the commit metadata referenced by conflict markers) for a caller to
// show a useful conflict report without running git again. See
// spec.md §4.6/§9.
//
// An Analyzer never mutates refs; it only reads.
package conflict

import "go.branchdeck.dev/engine/internal/git"

// FileDiffStat is a single file's status in a commit's diff against its
// first parent, restricted to the conflicted paths.
type FileDiffStat struct {
	Path   string
	Status string
}

// MissingCommit is a commit that is part of the running parent's history
// but not the source branch's, and touches one of the conflicted paths.
type MissingCommit struct {
	Hash       git.Hash
	Author     git.Signature
	AuthorTime int64
	Subject    string
	Files      []FileDiffStat
}

// FileSnapshot captures one conflicted path's content at the merge base,
// the running parent, and the source commit, plus the two diffs between
// base and each side and the conflict-markered text merge-tree produced,
// when the conflict was a content conflict (structural conflicts such as
// add/add or rename/delete have no markered text).
type FileSnapshot struct {
	Path string

	BasePresent bool
	BaseContent []byte

	ParentPresent bool
	ParentContent []byte
	ParentDiff    string

	SourcePresent bool
	SourceContent []byte
	SourceDiff    string

	// Marked is the merged blob with conflict markers embedded, present
	// only for plain content conflicts.
	Marked []byte
}

// CommitInfo is the metadata resolved for a commit hash referenced by a
// conflict marker label.
type CommitInfo struct {
	Hash       git.Hash
	Author     git.Signature
	AuthorTime int64
	Subject    string
}

// Artifact is the complete context for one conflicted cherry-pick,
// attached to the commitError event for the commit that failed.
type Artifact struct {
	MergeBase      git.Hash
	MissingCommits []MissingCommit
	Files          []FileSnapshot
	CommitInfo     map[git.Hash]CommitInfo
}
