package conflict

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"go.branchdeck.dev/engine/internal/git"
)

// parseCommitObject parses the raw bytes of a "commit" object as returned
// by CatFileBatch into the subset of metadata conflict markers need: who
// wrote it, when, and its subject line.
func parseCommitObject(hash git.Hash, content []byte) (CommitInfo, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	info := CommitInfo{Hash: hash}
	var inBody bool
	for scanner.Scan() {
		line := scanner.Text()
		if inBody {
			info.Subject = line
			break
		}
		if line == "" {
			inBody = true
			continue
		}

		field, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if field == "author" {
			name, email, when, err := parseSignatureLine(rest)
			if err != nil {
				return CommitInfo{}, fmt.Errorf("author line %q: %w", line, err)
			}
			info.Author = git.Signature{Name: name, Email: email}
			info.AuthorTime = when
		}
	}
	if err := scanner.Err(); err != nil {
		return CommitInfo{}, err
	}
	return info, nil
}

// parseSignatureLine parses the value half of an "author"/"committer"
// header line: "Name <email> <unix-seconds> <tz-offset>".
func parseSignatureLine(s string) (name, email string, when int64, err error) {
	emailStart := strings.IndexByte(s, '<')
	emailEnd := strings.IndexByte(s, '>')
	if emailStart < 0 || emailEnd < emailStart {
		return "", "", 0, fmt.Errorf("missing <email>: %q", s)
	}

	name = strings.TrimSpace(s[:emailStart])
	email = s[emailStart+1 : emailEnd]

	rest := strings.TrimSpace(s[emailEnd+1:])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return name, email, 0, nil
	}

	when, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("timestamp %q: %w", fields[0], err)
	}
	return name, email, when, nil
}
