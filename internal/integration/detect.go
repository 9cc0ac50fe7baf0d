package integration

import (
	"context"
	"fmt"
	"strings"

	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

// isIntegrated reports whether tip's commits are already present on
// mainline, consulting (and populating) the cache first.
func (d *Detector) isIntegrated(ctx context.Context, tip, mainline git.Hash) (bool, event.IntegrationMethod, error) {
	if integrated, method, ok, err := d.lookupCache(ctx, tip, mainline); err != nil {
		return false, "", err
	} else if ok {
		return integrated, method, nil
	}

	integrated, method, err := d.compute(ctx, tip, mainline)
	if err != nil {
		return false, "", err
	}

	if err := d.recordCache(ctx, tip, mainline, integrated, method); err != nil {
		return false, "", err
	}
	return integrated, method, nil
}

// compute runs the two detection heuristics from spec.md §4.7: a direct
// ancestor check first (cheap, and catches fast-forward merges and
// rebases onto the exact same tree), then a patch-id comparison that
// also catches rebases and squashes that produced different trees but
// equivalent diffs.
func (d *Detector) compute(ctx context.Context, tip, mainline git.Hash) (bool, event.IntegrationMethod, error) {
	if d.repo.IsAncestor(ctx, tip, mainline) {
		return true, event.IntegrationAncestor, nil
	}

	forkPoint, err := d.repo.MergeBase(ctx, tip.String(), mainline.String())
	if err != nil {
		return false, "", fmt.Errorf("merge-base: %w", err)
	}

	var branchCommits, mainlineCommits []git.Hash
	for rec, err := range d.repo.EnumerateCommits(ctx, forkPoint.String(), tip.String()) {
		if err != nil {
			return false, "", fmt.Errorf("enumerate branch commits: %w", err)
		}
		branchCommits = append(branchCommits, rec.Hash)
	}
	if len(branchCommits) == 0 {
		return true, event.IntegrationAncestor, nil
	}

	for rec, err := range d.repo.EnumerateCommits(ctx, forkPoint.String(), mainline.String()) {
		if err != nil {
			return false, "", fmt.Errorf("enumerate mainline commits: %w", err)
		}
		mainlineCommits = append(mainlineCommits, rec.Hash)
	}

	branchPatchIDs, err := d.repo.PatchIDBatch(ctx, branchCommits)
	if err != nil {
		return false, "", fmt.Errorf("patch-id branch commits: %w", err)
	}
	mainlinePatchIDs, err := d.repo.PatchIDBatch(ctx, mainlineCommits)
	if err != nil {
		return false, "", fmt.Errorf("patch-id mainline commits: %w", err)
	}

	mainlineSet := make(map[git.PatchID]struct{}, len(mainlinePatchIDs))
	for _, id := range mainlinePatchIDs {
		mainlineSet[id] = struct{}{}
	}

	for _, hash := range branchCommits {
		id, ok := branchPatchIDs[hash]
		if !ok {
			return false, "", nil
		}
		if _, ok := mainlineSet[id]; !ok {
			return false, "", nil
		}
	}
	return true, event.IntegrationPatchID, nil
}

const cacheValueNone = "none"

func (d *Detector) lookupCache(ctx context.Context, tip, mainline git.Hash) (integrated bool, method event.IntegrationMethod, ok bool, err error) {
	content, err := d.cache.Show(ctx, tip.String())
	if err != nil {
		return false, "", false, nil
	}

	fields := strings.Fields(strings.TrimSpace(content))
	if len(fields) != 2 || git.Hash(fields[0]) != mainline {
		return false, "", false, nil
	}

	switch fields[1] {
	case string(event.IntegrationPatchID):
		return true, event.IntegrationPatchID, true, nil
	case string(event.IntegrationAncestor):
		return true, event.IntegrationAncestor, true, nil
	case cacheValueNone:
		return false, "", true, nil
	default:
		return false, "", false, nil
	}
}

func (d *Detector) recordCache(ctx context.Context, tip, mainline git.Hash, integrated bool, method event.IntegrationMethod) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := cacheValueNone
	if integrated {
		value = string(method)
	}
	return d.cache.AddBatch(ctx, map[string]string{
		tip.String(): fmt.Sprintf("%s %s", mainline, value),
	})
}
