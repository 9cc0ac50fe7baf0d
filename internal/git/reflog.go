package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReflogLastTime reports the timestamp of the most recent reflog entry
// for ref. ok is false if ref has no reflog, e.g. a remote-tracking ref
// that has never been updated by a fetch.
func (r *Repository) ReflogLastTime(ctx context.Context, ref string) (t time.Time, ok bool, err error) {
	// With --date=unix, %gd prints the entry as "<ref>@{<seconds>}".
	out, err := r.gitCmd(ctx, "log", "--walk-reflogs", "--date=unix", "--format=%gd", "-1", ref).OutputString(r.exec)
	if err != nil {
		return time.Time{}, false, nil
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return time.Time{}, false, nil
	}

	i := strings.LastIndex(out, "@{")
	if i < 0 || !strings.HasSuffix(out, "}") {
		return time.Time{}, false, fmt.Errorf("parse reflog selector %q", out)
	}
	sec, err := strconv.ParseInt(out[i+2:len(out)-1], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse reflog timestamp %q: %w", out, err)
	}
	return time.Unix(sec, 0), true, nil
}
