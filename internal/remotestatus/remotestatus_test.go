package remotestatus_test

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/git/gittest"
	"go.branchdeck.dev/engine/internal/remotestatus"
	"go.branchdeck.dev/engine/internal/text"
)

type collectingSink struct {
	events []event.Event
}

func (s *collectingSink) Emit(e event.Event) { s.events = append(s.events, e) }

func TestProbe_Check_NotPushed(t *testing.T) {
	t.Parallel()

	gittest.SkipUnlessVersionAtLeast(t, gittest.Version{Major: 2, Minor: 38, Patch: 0})

	ctx := t.Context()
	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2025-06-21T00:00:00Z'
		as 'dev@example.com'
		git init --bare remote.git
		git init
		git remote add origin remote.git
		git commit --allow-empty -m 'base'
		git branch acme/virtual/feat
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(ctx, fixture.Dir(), git.OpenOptions{Log: log.New(io.Discard)})
	require.NoError(t, err)

	sink := &collectingSink{}
	probe := remotestatus.New(repo, "origin", nil, sink, nil)

	key := classify.Key{Kind: classify.KindExplicit, Value: "feat"}
	status, err := probe.Check(ctx, key, "refs/heads/acme/virtual/feat", "dev@example.com")
	require.NoError(t, err)
	assert.False(t, status.Exists)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "remoteStatusUpdate", sink.events[0].Type())
}

func TestProbe_Check_ExistsAheadWithPushTime(t *testing.T) {
	t.Parallel()

	gittest.SkipUnlessVersionAtLeast(t, gittest.Version{Major: 2, Minor: 38, Patch: 0})

	ctx := t.Context()
	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2025-06-21T00:00:00Z'
		as 'dev@example.com'
		git init --bare remote.git
		git init
		git remote add origin remote.git
		git commit --allow-empty -m 'base'
		git branch acme/virtual/feat
		git checkout acme/virtual/feat
		git commit --allow-empty -m 'feat one'
		git push origin acme/virtual/feat:refs/heads/acme/virtual/feat
		git fetch origin
		git commit --allow-empty -m 'feat two'
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(ctx, fixture.Dir(), git.OpenOptions{Log: log.New(io.Discard)})
	require.NoError(t, err)

	sink := &collectingSink{}
	probe := remotestatus.New(repo, "origin", nil, sink, nil)

	key := classify.Key{Kind: classify.KindExplicit, Value: "feat"}
	status, err := probe.Check(ctx, key, "refs/heads/acme/virtual/feat", "dev@example.com")
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, 1, status.CommitsAhead)
	assert.Equal(t, 0, status.CommitsBehind)
	assert.Equal(t, 1, status.MyCommitsAhead)
	require.Len(t, status.UnpushedCommits, 1)
	require.NotNil(t, status.LastPushTime)
	assert.Equal(t, int64(1750464000), status.LastPushTime.Unix())

	require.Len(t, sink.events, 1)
	update, ok := sink.events[0].(event.RemoteStatusUpdate)
	require.True(t, ok)
	assert.Equal(t, 1, update.CommitsAhead)
}

func TestProbe_Check_UnknownAuthorNotCountedAsMine(t *testing.T) {
	t.Parallel()

	gittest.SkipUnlessVersionAtLeast(t, gittest.Version{Major: 2, Minor: 38, Patch: 0})

	ctx := t.Context()
	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2025-06-21T00:00:00Z'
		as 'dev@example.com'
		git init --bare remote.git
		git init
		git remote add origin remote.git
		git commit --allow-empty -m 'base'
		git branch acme/virtual/feat
		git checkout acme/virtual/feat
		git push origin acme/virtual/feat:refs/heads/acme/virtual/feat
		git fetch origin
		as 'other@example.com'
		git commit --allow-empty -m 'feat by someone else'
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(ctx, fixture.Dir(), git.OpenOptions{Log: log.New(io.Discard)})
	require.NoError(t, err)

	probe := remotestatus.New(repo, "origin", nil, nil, nil)

	key := classify.Key{Kind: classify.KindExplicit, Value: "feat"}
	status, err := probe.Check(ctx, key, "refs/heads/acme/virtual/feat", "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, status.CommitsAhead)
	assert.Equal(t, 0, status.MyCommitsAhead)
}
