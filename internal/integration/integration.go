// Package integration implements the Integration Detector (spec.md
// §4.7): it scans known virtual branches, decides whether each has
// already landed on mainline, and moves the ones that have into the
// archived namespace.
package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/graph"
)

// Ref is the notes ref integration results are cached on, keyed by
// (virtual branch tip, mainline tip).
const Ref = "refs/notes/branch-deck-integration"

// VirtualBranch is a known branch under "<user_prefix>/virtual/".
type VirtualBranch struct {
	Key classify.Key
	Tip git.Hash
}

// RefName is the branch's fully qualified ref name.
func (b VirtualBranch) RefName(userPrefix string) string {
	return "refs/heads/" + userPrefix + "/virtual/" + b.Key.String()
}

// ArchivedBranch is a virtual branch the Detector moved out of the
// active namespace because its commits were found integrated.
type ArchivedBranch struct {
	Key  classify.Key
	Tip  git.Hash
	Date string // UTC date, YYYY-MM-DD
}

// RefName is the archived branch's fully qualified ref name.
func (b ArchivedBranch) RefName(userPrefix string) string {
	return "refs/heads/" + userPrefix + "/archived/" + b.Date + "/" + b.Key.String()
}

// Detector runs integration detection for one user prefix's virtual
// branches.
type Detector struct {
	repo  *git.Repository
	cache *git.Notes
	sink  event.Sink

	mu sync.Mutex
}

// New builds a Detector reading and writing through repo and reporting
// results on sink.
func New(repo *git.Repository, sink event.Sink) *Detector {
	return &Detector{repo: repo, cache: repo.Notes(Ref), sink: sink}
}

// Detect scans every virtual branch under userPrefix, archives the ones
// integrated into mainline (whose tip is mainline), and emits
// ArchivedBranchesFound/BranchIntegrationDetected summarizing the run.
// archiveDate is the UTC date (YYYY-MM-DD) stamped onto any new archived
// refs; the caller supplies it since this package has no clock of its
// own.
func (d *Detector) Detect(ctx context.Context, userPrefix string, mainline git.Hash, archiveDate string) ([]ArchivedBranch, error) {
	branches, err := d.discoverVirtualBranches(ctx, userPrefix)
	if err != nil {
		return nil, fmt.Errorf("integration: discover virtual branches: %w", err)
	}

	type candidate struct {
		vb     VirtualBranch
		ab     ArchivedBranch
		method event.IntegrationMethod
	}
	var candidates []candidate

	for _, vb := range branches {
		integrated, method, err := d.isIntegrated(ctx, vb.Tip, mainline)
		if err != nil {
			return nil, fmt.Errorf("integration: detect %s: %w", vb.Key, err)
		}
		if !integrated {
			continue
		}
		candidates = append(candidates, candidate{
			vb:     vb,
			ab:     ArchivedBranch{Key: vb.Key, Tip: vb.Tip, Date: archiveDate},
			method: method,
		})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Order archival so that if one virtual branch is stacked on another
	// (its tip's ancestry includes the other's tip), the base branch is
	// archived and reported first.
	ordered := graph.Toposort(candidates, func(c candidate) (candidate, bool) {
		for _, other := range candidates {
			if other.vb.Tip == c.vb.Tip {
				continue
			}
			if d.repo.IsAncestor(ctx, other.vb.Tip, c.vb.Tip) {
				return other, true
			}
		}
		return candidate{}, false
	})

	archived := make([]ArchivedBranch, 0, len(ordered))
	keys := make([]classify.Key, 0, len(ordered))
	results := make([]event.BranchIntegration, 0, len(ordered))
	for _, c := range ordered {
		if err := d.archive(ctx, userPrefix, c.vb, c.ab); err != nil {
			return nil, fmt.Errorf("integration: archive %s: %w", c.vb.Key, err)
		}
		archived = append(archived, c.ab)
		keys = append(keys, c.vb.Key)
		results = append(results, event.BranchIntegration{Partition: c.vb.Key, Method: c.method})
	}

	if d.sink != nil {
		d.sink.Emit(event.NewArchivedBranchesFound(keys))
		d.sink.Emit(event.NewBranchIntegrationDetected(results))
	}

	return archived, nil
}

func (d *Detector) discoverVirtualBranches(ctx context.Context, userPrefix string) ([]VirtualBranch, error) {
	all, err := d.repo.LocalBranches(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	prefix := userPrefix + "/virtual/"
	var branches []VirtualBranch
	for _, b := range all {
		key, ok := strings.CutPrefix(b.Name, prefix)
		if !ok {
			continue
		}
		tip, err := d.repo.PeelToCommit(ctx, b.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", b.Name, err)
		}
		branches = append(branches, VirtualBranch{Key: classify.Key{Value: key}, Tip: tip})
	}
	return branches, nil
}

func (d *Detector) archive(ctx context.Context, userPrefix string, vb VirtualBranch, ab ArchivedBranch) error {
	if err := d.repo.SetRef(ctx, git.SetRefRequest{
		Ref:     ab.RefName(userPrefix),
		Hash:    vb.Tip,
		OldHash: git.ZeroHash,
	}); err != nil {
		return fmt.Errorf("create archived ref: %w", err)
	}

	branchName := strings.TrimPrefix(vb.RefName(userPrefix), "refs/heads/")
	if err := d.repo.DeleteBranch(ctx, branchName, git.BranchDeleteOptions{Force: true}); err != nil {
		return fmt.Errorf("delete virtual branch: %w", err)
	}
	return nil
}
