package git

import (
	"fmt"
	"strconv"
)

// Mode is the octal file mode of a Git tree entry, as reported by
// merge-tree's conflict file listing.
type Mode int

// Modes that appear in conflict file listings.
const (
	ZeroMode    Mode = 0o000000
	RegularMode Mode = 0o100644
	DirMode     Mode = 0o040000
)

// ParseMode parses an octal mode string as reported by git plumbing.
func ParseMode(s string) (Mode, error) {
	i, err := strconv.ParseInt(s, 8, 32)
	return Mode(i), err
}

func (m Mode) String() string {
	return fmt.Sprintf("%06o", m)
}
