package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// explicitPrefixPattern matches a leading "(name) " tag. The key is
// whatever is inside the parentheses.
var explicitPrefixPattern = regexp.MustCompile(`^\(([A-Za-z0-9._\-]+)\)\s+`)

// leadingBracketTagPattern matches a leading "[subsystem] " tag, stripped
// only while looking for an issue id fallback.
var leadingBracketTagPattern = regexp.MustCompile(`^\[[^\]]+\]\s*`)

// issueIDPattern matches an issue id like "ABC-123" anywhere in the text.
var issueIDPattern = regexp.MustCompile(`[A-Z]+-\d+`)

// fixupPrefixPattern matches git's "fixup! " autosquash marker.
var fixupPrefixPattern = regexp.MustCompile(`^fixup!\s+`)

// Subject derives a partition Key from a commit subject line.
//
// An explicit "(name) " prefix always wins. Otherwise, after optionally
// stripping one leading "[subsystem] " tag, the first "[A-Z]+-\d+" match
// anywhere in the remaining text is taken as an issue id. A subject
// matching neither is unassigned (the zero Key).
func Subject(subject string) Key {
	if m := explicitPrefixPattern.FindStringSubmatch(subject); m != nil {
		return Key{Kind: KindExplicit, Value: m[1]}
	}

	rest := leadingBracketTagPattern.ReplaceAllString(subject, "")
	if id := issueIDPattern.FindString(rest); id != "" {
		return Key{Kind: KindIssue, Value: id}
	}

	return Key{}
}

// StripPrefix removes the portion of subject consumed by classification,
// per spec.md §4.5 step 4: the grouping prefix is removed (the explicit
// tag, or a leading bracketed subsystem tag that was stripped to find the
// issue id), but the issue id itself and any trailers are left in the
// rewritten subject.
func StripPrefix(subject string, key Key) string {
	switch key.Kind {
	case KindExplicit:
		return strings.TrimSpace(explicitPrefixPattern.ReplaceAllString(subject, ""))
	case KindIssue:
		return strings.TrimSpace(leadingBracketTagPattern.ReplaceAllString(subject, ""))
	default:
		return subject
	}
}

// StripFixupPrefix removes a leading "fixup! " marker, reporting whether
// one was present. The returned target is the subject fixup! would
// otherwise attach to.
func StripFixupPrefix(subject string) (target string, isFixup bool) {
	if loc := fixupPrefixPattern.FindStringIndex(subject); loc != nil {
		return subject[loc[1]:], true
	}
	return subject, false
}

// separatorRunPattern matches one or more characters outside Git's safe
// ref character set.
var separatorRunPattern = regexp.MustCompile(`[^A-Za-z0-9._\-/]+`)

// repeatedSeparatorPattern collapses repeated separators left over after
// substitution, so "a--b" and "a/-/b" both become single-separator forms.
var repeatedSeparatorPattern = regexp.MustCompile(`[-/]{2,}`)

// SanitizeRef converts an arbitrary partition key into a string safe to
// use as the key segment of a Git ref name (it may still contain "/",
// and so span several path components): characters outside
// [A-Za-z0-9._-/] become "-", repeats collapse, and leading/trailing
// separators are trimmed. An empty result is rejected.
func SanitizeRef(key string) (string, error) {
	sanitized := separatorRunPattern.ReplaceAllString(key, "-")
	sanitized = repeatedSeparatorPattern.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-/")
	if sanitized == "" {
		return "", fmt.Errorf("classify: sanitized ref for %q is empty", key)
	}
	return sanitized, nil
}
