package branchdeck

import (
	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

// groupCommits partitions commits by their classify.Key, in first-seen
// order, attaching "fixup! " commits to the partition of the commit
// they target (spec.md §6.2). Commits with no key and no confident
// fixup target are returned separately as unassigned.
func groupCommits(commits []git.CommitRecord) (partitions []event.Partition, unassigned []git.CommitRecord) {
	order := make([]classify.Key, 0)
	byKey := make(map[classify.Key][]git.CommitRecord)
	subjects := make([]string, 0, len(commits))

	for _, c := range commits {
		target, isFixup := classify.StripFixupPrefix(c.Subject)

		key := classify.Subject(c.Subject)
		if key.Kind == classify.KindUnassigned && isFixup {
			idx, ok := -1, false
			for j := len(subjects) - 1; j >= 0; j-- {
				if subjects[j] == target {
					idx, ok = j, true
					break
				}
			}
			if !ok {
				idx, ok = classify.MatchFixupTarget(target, subjects)
			}
			if ok {
				key = classify.Subject(commits[idx].Subject)
			}
		}

		subjects = append(subjects, c.Subject)

		if key.Kind == classify.KindUnassigned {
			unassigned = append(unassigned, c)
			continue
		}

		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], c)
	}

	partitions = make([]event.Partition, 0, len(order))
	for _, key := range order {
		partitions = append(partitions, event.Partition{Key: key, Commits: byKey[key]})
	}
	return partitions, unassigned
}
