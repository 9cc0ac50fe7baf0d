package branchdeck

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/testing/stub"

	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/git/gittest"
	"go.branchdeck.dev/engine/internal/text"
)

// TestEngine_Sync_ArchivesIntegratedBranchUnderStubbedDate exercises the
// Integration Detector from a full Sync run: a virtual branch that
// already matches mainline gets moved to the archived namespace, dated
// with whatever the engine's clock reports (spec.md §4.7). Stubbing that
// clock keeps the expected ref name exact rather than "today, whatever
// that is".
func TestEngine_Sync_ArchivesIntegratedBranchUnderStubbedDate(t *testing.T) {
	gittest.SkipUnlessVersionAtLeast(t, gittest.Version{Major: 2, Minor: 38, Patch: 0})

	fixed := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	defer stub.Func(&now, fixed)()

	ctx := t.Context()
	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2025-06-21T00:00:00Z'
		as 'dev@example.com'
		git init --bare origin.git
		git init
		git remote add origin origin.git
		git commit --allow-empty -m 'base'
		git branch acme/virtual/auth
		git push origin main
		git fetch origin
		git symbolic-ref refs/remotes/origin/HEAD refs/remotes/origin/main
		git commit --allow-empty -m '(billing) add invoice'
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(ctx, fixture.Dir(), git.OpenOptions{Log: log.New(io.Discard)})
	require.NoError(t, err)

	sink := event.NewChan(64)
	collected := make(chan []event.Event, 1)
	go func() {
		var got []event.Event
		for e := range sink.All() {
			got = append(got, e)
		}
		collected <- got
	}()

	engine := New(repo, sink, Options{UserPrefix: "acme", Remote: "origin"}, nil)
	require.NoError(t, engine.Sync(ctx))
	sink.Close()
	events := <-collected

	var sawArchived bool
	for _, e := range events {
		if found, ok := e.(event.ArchivedBranchesFound); ok {
			sawArchived = true
			require.Len(t, found.Keys, 1)
			assert.Equal(t, "auth", found.Keys[0].String())
		}
	}
	assert.True(t, sawArchived, "expected an archivedBranchesFound event")

	_, err = repo.PeelToCommit(ctx, "refs/heads/acme/virtual/auth")
	assert.Error(t, err, "virtual branch should have been archived away")

	tip, err := repo.PeelToCommit(ctx, "refs/heads/acme/archived/2025-03-14/auth")
	require.NoError(t, err)
	assert.NotEmpty(t, tip)
}
