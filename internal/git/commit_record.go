package git

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"go.branchdeck.dev/engine/internal/scanutil"
)

// CommitRecord is the read-only view of a single commit produced by
// EnumerateCommits. Time and Commit are seconds since the Unix epoch;
// Author carries only the name and email.
type CommitRecord struct {
	Hash     Hash
	Tree     Hash
	Parents  []Hash
	Author   Signature
	Time     int64 // author time
	Commit   int64 // committer time
	Subject  string
	Body     string
}

// commitRecordFormat produces one NUL-terminated record per commit, with
// fields separated by a unit separator (0x1f) that cannot appear in any of
// the fields git substitutes in.
const commitRecordFormat = "%H\x1f%T\x1f%P\x1f%an\x1f%ae\x1f%at\x1f%ct\x1f%s\x1f%b%x00"

// EnumerateCommits lists the commits reachable from head but not from base,
// oldest first, in a single `git log` invocation. This is the Commit
// Reader's sole entry point: one process per partitioning pass rather than
// one per commit.
func (r *Repository) EnumerateCommits(ctx context.Context, base, head string) iter.Seq2[CommitRecord, error] {
	return r.enumerateCommits(ctx, base, head, nil)
}

// EnumerateCommitsPaths is EnumerateCommits restricted to commits that
// touch at least one of paths. Used by the Conflict Analyzer's
// missing-commit walk (spec.md §4.6), which only cares about history
// touching the files that conflicted.
func (r *Repository) EnumerateCommitsPaths(ctx context.Context, base, head string, paths []string) iter.Seq2[CommitRecord, error] {
	return r.enumerateCommits(ctx, base, head, paths)
}

func (r *Repository) enumerateCommits(ctx context.Context, base, head string, paths []string) iter.Seq2[CommitRecord, error] {
	return func(yield func(CommitRecord, error) bool) {
		args := []string{
			"log",
			"--reverse",
			"--format=" + commitRecordFormat,
			head, "--not", base, "--",
		}
		args = append(args, paths...)
		cmd := r.gitCmd(ctx, args...)

		for raw, err := range cmd.Scan(r.exec, scanutil.SplitNull) {
			if err != nil {
				yield(CommitRecord{}, fmt.Errorf("git log: %w", err))
				return
			}

			// tformat ends each record with a newline after the NUL,
			// so every token after the first starts with one.
			s := strings.TrimPrefix(string(raw), "\n")
			if s == "" {
				continue
			}

			rec, err := parseCommitRecord(s)
			if err != nil {
				yield(CommitRecord{}, fmt.Errorf("parse commit record: %w", err))
				return
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}

func parseCommitRecord(s string) (CommitRecord, error) {
	fields := strings.SplitN(s, "\x1f", 9)
	if len(fields) != 9 {
		return CommitRecord{}, fmt.Errorf("expected 9 fields, got %d", len(fields))
	}

	authorTime, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return CommitRecord{}, fmt.Errorf("author time %q: %w", fields[5], err)
	}
	commitTime, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return CommitRecord{}, fmt.Errorf("committer time %q: %w", fields[6], err)
	}

	var parents []Hash
	if p := strings.TrimSpace(fields[2]); p != "" {
		for _, h := range strings.Fields(p) {
			parents = append(parents, Hash(h))
		}
	}

	return CommitRecord{
		Hash:    Hash(fields[0]),
		Tree:    Hash(fields[1]),
		Parents: parents,
		Author: Signature{
			Name:  fields[3],
			Email: fields[4],
		},
		Time:    authorTime,
		Commit:  commitTime,
		Subject: strings.TrimSpace(fields[7]),
		Body:    strings.TrimSpace(fields[8]),
	}, nil
}
