package noteindex_test

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/git/gittest"
	"go.branchdeck.dev/engine/internal/noteindex"
	"go.branchdeck.dev/engine/internal/text"
)

type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Emit(e event.Event) { s.events = append(s.events, e) }

func openFixture(t *testing.T) *git.Repository {
	t.Helper()

	gittest.SkipUnlessVersionAtLeast(t, gittest.Version{Major: 2, Minor: 38, Patch: 0})

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2025-06-21T00:00:00Z'
		git init

		git commit --allow-empty -m 'one'
		git commit --allow-empty -m 'two'
		git commit --allow-empty -m 'three'
	`)))
	require.NoError(t, err)
	t.Cleanup(fixture.Cleanup)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: log.New(io.Discard)})
	require.NoError(t, err)
	return repo
}

func TestIndex_RecordAndLookup(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := openFixture(t)

	one, err := repo.PeelToCommit(ctx, "HEAD~2")
	require.NoError(t, err)
	two, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	three, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	idx := noteindex.New(repo, nil)

	require.NoError(t, idx.RecordBatch(ctx, []noteindex.Entry{
		{Original: one, Parent: two, Rewritten: three},
	}))

	rewritten, ok, err := idx.Lookup(ctx, one, two)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, three, rewritten)

	_, ok, err = idx.Lookup(ctx, one, three)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_RecordBatchMergesAcrossParents(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := openFixture(t)

	one, err := repo.PeelToCommit(ctx, "HEAD~2")
	require.NoError(t, err)
	two, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	three, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	idx := noteindex.New(repo, nil)

	require.NoError(t, idx.RecordBatch(ctx, []noteindex.Entry{
		{Original: one, Parent: two, Rewritten: three},
	}))
	require.NoError(t, idx.RecordBatch(ctx, []noteindex.Entry{
		{Original: one, Parent: three, Rewritten: two},
	}))

	rewritten, ok, err := idx.Lookup(ctx, one, two)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, three, rewritten)

	rewritten, ok, err = idx.Lookup(ctx, one, three)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, two, rewritten)
}

func TestIndex_LookupDanglingRewrittenIsMissAndReported(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	repo := openFixture(t)

	one, err := repo.PeelToCommit(ctx, "HEAD~2")
	require.NoError(t, err)
	two, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)

	sink := &recordingSink{}
	idx := noteindex.New(repo, sink)

	fake := git.Hash("abababababababababababababababababababab")
	require.NoError(t, idx.RecordBatch(ctx, []noteindex.Entry{
		{Original: one, Parent: two, Rewritten: fake},
	}))

	_, ok, err := idx.Lookup(ctx, one, two)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "noteIndexInconsistency", sink.events[0].Type())
}
