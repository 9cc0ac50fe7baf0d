package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/conflict"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

func TestEvent_Types(t *testing.T) {
	t.Parallel()

	key := classify.Key{Kind: classify.KindIssue, Value: "ABC-1"}

	cases := []struct {
		name string
		e    event.Event
		want string
	}{
		{"issueNavigationConfig", event.NewIssueNavigationConfig("https://x", "ABC-\\d+"), "issueNavigationConfig"},
		{"branchesGrouped", event.NewBranchesGrouped(nil), "branchesGrouped"},
		{"unassignedCommits", event.NewUnassignedCommits(nil), "unassignedCommits"},
		{"commitSynced", event.NewCommitSynced(key, "a", "b", event.CommitCreated), "commitSynced"},
		{"commitError", event.NewCommitError(key, "a", "boom"), "commitError"},
		{"commitConflictError", event.NewCommitConflictError(key, "a", &conflict.Artifact{}), "commitError"},
		{"branchStatusUpdate", event.NewBranchStatusUpdate(key, event.BranchSyncing), "branchStatusUpdate"},
		{"remoteStatusUpdate", event.NewRemoteStatusUpdate(key, true, nil, 0, 0, 0, nil), "remoteStatusUpdate"},
		{"archivedBranchesFound", event.NewArchivedBranchesFound(nil), "archivedBranchesFound"},
		{"branchIntegrationDetected", event.NewBranchIntegrationDetected(nil), "branchIntegrationDetected"},
		{"noteIndexInconsistency", event.NewNoteIndexInconsistency("a", "b", "c", "dangling"), "noteIndexInconsistency"},
		{"completed", event.NewCompleted(), "completed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.e.Type())
		})
	}
}

func TestCommitError_ArtifactOnlyOnConflict(t *testing.T) {
	t.Parallel()

	key := classify.Key{}
	generic := event.NewCommitError(key, git.Hash("a"), "some failure")
	assert.Nil(t, generic.Artifact)

	conflictErr := event.NewCommitConflictError(key, git.Hash("a"), &conflict.Artifact{MergeBase: "base"})
	assert.NotNil(t, conflictErr.Artifact)
	assert.Equal(t, git.Hash("base"), conflictErr.Artifact.MergeBase)
}
