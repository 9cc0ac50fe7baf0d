package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.branchdeck.dev/engine/internal/event"
)

func TestChan_EmitNext(t *testing.T) {
	t.Parallel()

	c := event.NewChan(2)
	c.Emit(event.NewCompleted())
	c.Emit(event.NewCompleted())

	e, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "completed", e.Type())

	e, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "completed", e.Type())
}

func TestChan_EmitBlocksAtCapacity(t *testing.T) {
	t.Parallel()

	c := event.NewChan(1)
	c.Emit(event.NewCompleted())

	emitted := make(chan struct{})
	go func() {
		c.Emit(event.NewCompleted())
		close(emitted)
	}()

	select {
	case <-emitted:
		t.Fatal("Emit should have blocked at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := c.Next()
	require.True(t, ok)

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("Emit should have unblocked after Next freed capacity")
	}
}

func TestChan_CloseDrainsThenStops(t *testing.T) {
	t.Parallel()

	c := event.NewChan(4)
	c.Emit(event.NewCompleted())
	c.Emit(event.NewCompleted())
	c.Close()

	var got []event.Event
	for e := range c.All() {
		got = append(got, e)
	}
	assert.Len(t, got, 2)
}

func TestChan_EmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	c := event.NewChan(1)
	c.Close()
	c.Emit(event.NewCompleted())

	_, ok := c.Next()
	assert.False(t, ok)
}
