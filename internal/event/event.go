// Package event defines Branch Deck's typed event stream (spec.md §6.3):
// a closed set of event kinds the Branch Sync Orchestrator emits as it
// works, and a bounded sink that back-pressures a slow consumer instead
// of growing memory without bound.
//
// There's no teacher analog for this package — git-spice logs directly
// rather than streaming a typed protocol to a caller — so its shape is
// enrichment grounded directly in spec.md rather than adapted teacher
// code.
package event

import (
	"time"

	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/conflict"
	"go.branchdeck.dev/engine/internal/git"
)

// Event is one item in the event stream. The concrete type identifies
// the event; Type reports its wire discriminant for callers that need to
// serialize or log it generically.
type Event interface {
	Type() string

	isEvent()
}

// CommitStatus is the per-commit outcome reported by a CommitSynced
// event.
type CommitStatus string

// Recognized CommitStatus values (spec.md §6.3).
const (
	CommitCreated   CommitStatus = "created"
	CommitUnchanged CommitStatus = "unchanged"
	CommitUpdated   CommitStatus = "updated"
	CommitPending   CommitStatus = "pending"
	CommitBlocked   CommitStatus = "blocked"
)

// BranchStatus is the per-partition state machine reported by a
// BranchStatusUpdate event.
type BranchStatus string

// Recognized BranchStatus values (spec.md §6.3).
const (
	BranchSyncing           BranchStatus = "syncing"
	BranchCreated           BranchStatus = "created"
	BranchUpdated           BranchStatus = "updated"
	BranchUnchanged         BranchStatus = "unchanged"
	BranchError             BranchStatus = "error"
	BranchMergeConflict     BranchStatus = "mergeConflict"
	BranchAnalyzingConflict BranchStatus = "analyzingConflict"
)

// Partition is one partition's key and the commits assigned to it, as
// reported by BranchesGrouped.
type Partition struct {
	Key     classify.Key
	Commits []git.CommitRecord
}

// IssueNavigationConfig optionally tells a UI layer how to turn an issue
// id into a clickable link. Branch Deck never computes this itself, and
// Engine.Sync does not emit it; an embedder that wants it in the stream
// emits it on its own sink.
type IssueNavigationConfig struct {
	BaseURL string
	Pattern string
}

// NewIssueNavigationConfig builds an IssueNavigationConfig event.
func NewIssueNavigationConfig(baseURL, pattern string) IssueNavigationConfig {
	return IssueNavigationConfig{BaseURL: baseURL, Pattern: pattern}
}

func (IssueNavigationConfig) Type() string { return "issueNavigationConfig" }
func (IssueNavigationConfig) isEvent()     {}

// BranchesGrouped reports the full partition map for a sync run,
// excluding unassigned commits. It always precedes any CommitSynced
// event (spec.md §5).
type BranchesGrouped struct {
	Partitions []Partition
}

// NewBranchesGrouped builds a BranchesGrouped event.
func NewBranchesGrouped(partitions []Partition) BranchesGrouped {
	return BranchesGrouped{Partitions: partitions}
}

func (BranchesGrouped) Type() string { return "branchesGrouped" }
func (BranchesGrouped) isEvent()     {}

// UnassignedCommits reports commits the Classifier could not assign to
// any partition.
type UnassignedCommits struct {
	Commits []git.CommitRecord
}

// NewUnassignedCommits builds an UnassignedCommits event.
func NewUnassignedCommits(commits []git.CommitRecord) UnassignedCommits {
	return UnassignedCommits{Commits: commits}
}

func (UnassignedCommits) Type() string { return "unassignedCommits" }
func (UnassignedCommits) isEvent()     {}

// CommitSynced reports one commit's outcome in the Cherry-Pick Engine.
type CommitSynced struct {
	Partition classify.Key
	Original  git.Hash
	Rewritten git.Hash
	Status    CommitStatus
}

// NewCommitSynced builds a CommitSynced event.
func NewCommitSynced(partition classify.Key, original, rewritten git.Hash, status CommitStatus) CommitSynced {
	return CommitSynced{Partition: partition, Original: original, Rewritten: rewritten, Status: status}
}

func (CommitSynced) Type() string { return "commitSynced" }
func (CommitSynced) isEvent()     {}

// CommitError reports a commit that failed to cherry-pick. Message
// carries a generic error description; Artifact is non-nil only when the
// failure was a merge conflict (spec.md §4.6/§7).
type CommitError struct {
	Partition classify.Key
	Commit    git.Hash
	Message   string
	Artifact  *conflict.Artifact
}

// NewCommitError builds a generic (non-conflict) CommitError event.
func NewCommitError(partition classify.Key, commit git.Hash, message string) CommitError {
	return CommitError{Partition: partition, Commit: commit, Message: message}
}

// NewCommitConflictError builds a CommitError event carrying a merge
// conflict artifact.
func NewCommitConflictError(partition classify.Key, commit git.Hash, artifact *conflict.Artifact) CommitError {
	return CommitError{Partition: partition, Commit: commit, Artifact: artifact}
}

func (CommitError) Type() string { return "commitError" }
func (CommitError) isEvent()     {}

// BranchStatusUpdate reports a partition's overall state machine
// transition.
type BranchStatusUpdate struct {
	Partition classify.Key
	Status    BranchStatus
}

// NewBranchStatusUpdate builds a BranchStatusUpdate event.
func NewBranchStatusUpdate(partition classify.Key, status BranchStatus) BranchStatusUpdate {
	return BranchStatusUpdate{Partition: partition, Status: status}
}

func (BranchStatusUpdate) Type() string { return "branchStatusUpdate" }
func (BranchStatusUpdate) isEvent()     {}

// RemoteStatusUpdate reports a virtual branch's standing relative to its
// remote-tracking ref.
type RemoteStatusUpdate struct {
	Partition       classify.Key
	Exists          bool
	UnpushedCommits []git.Hash
	CommitsAhead    int
	CommitsBehind   int
	MyCommitsAhead  int
	LastPushTime    *time.Time
}

// NewRemoteStatusUpdate builds a RemoteStatusUpdate event.
func NewRemoteStatusUpdate(partition classify.Key, exists bool, unpushed []git.Hash, ahead, behind, mine int, lastPush *time.Time) RemoteStatusUpdate {
	return RemoteStatusUpdate{
		Partition:       partition,
		Exists:          exists,
		UnpushedCommits: unpushed,
		CommitsAhead:    ahead,
		CommitsBehind:   behind,
		MyCommitsAhead:  mine,
		LastPushTime:    lastPush,
	}
}

func (RemoteStatusUpdate) Type() string { return "remoteStatusUpdate" }
func (RemoteStatusUpdate) isEvent()     {}

// ArchivedBranchesFound reports the partition keys of virtual branches
// the Integration Detector moved to the archived namespace this run.
type ArchivedBranchesFound struct {
	Keys []classify.Key
}

// NewArchivedBranchesFound builds an ArchivedBranchesFound event.
func NewArchivedBranchesFound(keys []classify.Key) ArchivedBranchesFound {
	return ArchivedBranchesFound{Keys: keys}
}

func (ArchivedBranchesFound) Type() string { return "archivedBranchesFound" }
func (ArchivedBranchesFound) isEvent()     {}

// IntegrationMethod reports which heuristic the Integration Detector used
// to decide a branch was integrated.
type IntegrationMethod string

// Recognized IntegrationMethod values.
const (
	IntegrationPatchID  IntegrationMethod = "patch-id"
	IntegrationAncestor IntegrationMethod = "ancestor"
)

// BranchIntegration is one branch's integration detection result.
type BranchIntegration struct {
	Partition classify.Key
	Method    IntegrationMethod
}

// BranchIntegrationDetected reports integration results for all virtual
// branches examined this run.
type BranchIntegrationDetected struct {
	Branches []BranchIntegration
}

// NewBranchIntegrationDetected builds a BranchIntegrationDetected event.
func NewBranchIntegrationDetected(branches []BranchIntegration) BranchIntegrationDetected {
	return BranchIntegrationDetected{Branches: branches}
}

func (BranchIntegrationDetected) Type() string { return "branchIntegrationDetected" }
func (BranchIntegrationDetected) isEvent()     {}

// NoteIndexInconsistency is a warning event: a recorded note mapping
// pointed at an object that no longer resolves, so the Note Index
// demoted it to a cache miss (spec.md §7).
type NoteIndexInconsistency struct {
	Original  git.Hash
	Parent    git.Hash
	Rewritten git.Hash
	Reason    string
}

// NewNoteIndexInconsistency builds a NoteIndexInconsistency event.
func NewNoteIndexInconsistency(original, parent, rewritten git.Hash, reason string) NoteIndexInconsistency {
	return NoteIndexInconsistency{Original: original, Parent: parent, Rewritten: rewritten, Reason: reason}
}

func (NoteIndexInconsistency) Type() string { return "noteIndexInconsistency" }
func (NoteIndexInconsistency) isEvent()     {}

// Completed is the terminal event of a sync run. It is always the last
// event emitted.
type Completed struct{}

// NewCompleted builds a Completed event.
func NewCompleted() Completed { return Completed{} }

func (Completed) Type() string { return "completed" }
func (Completed) isEvent()     {}
