package git

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// NewTestRepository builds a Repository that uses the given execer
// instead of the real one, for use in unit tests that mock out
// subprocess execution.
func NewTestRepository(t testing.TB, root string, exec execer) *Repository {
	t.Helper()
	return newRepository(root, root, log.New(io.Discard), exec)
}
