package classify

import "github.com/sahilm/fuzzy"

// fixupConfidenceFloor is the minimum fuzzy match score MatchFixupTarget
// accepts before it gives up and reports no target, per spec.md §9's
// open question on fixup-attachment: silence on the exact rule means an
// advisory best-effort match, never a silent merge into the wrong
// partition.
const fixupConfidenceFloor = 30

// MatchFixupTarget resolves the commit a "fixup! <target>" subject should
// attach to, when no candidate subject matches target exactly. candidates
// are the subjects of commits already seen in this run, in the same order
// they were encountered; the returned index refers to that slice.
//
// The second return reports whether a confident match was found at all.
func MatchFixupTarget(target string, candidates []string) (index int, ok bool) {
	if target == "" || len(candidates) == 0 {
		return 0, false
	}

	matches := fuzzy.Find(target, candidates)
	if len(matches) == 0 {
		return 0, false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	if best.Score < fixupConfidenceFloor {
		return 0, false
	}

	return best.Index, true
}
