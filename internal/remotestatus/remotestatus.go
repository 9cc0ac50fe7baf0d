// Package remotestatus implements the Remote Status Probe (spec.md
// §4.8): for each virtual branch, reports how far its local and remote
// tips have diverged.
package remotestatus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

// Status is one virtual branch's standing relative to its
// remote-tracking ref.
type Status struct {
	Exists          bool
	CommitsAhead    int
	CommitsBehind   int
	MyCommitsAhead  int
	UnpushedCommits []git.Hash
	LastPushTime    *time.Time
}

// Probe checks remote status for virtual branches against one remote.
type Probe struct {
	repo    *git.Repository
	remote  string
	limiter *rate.Limiter
	sink    event.Sink
	log     *log.Logger
}

// New builds a Probe against the given remote (typically "origin").
// limiter throttles concurrent lookups across partitions; pass nil for
// no throttling. log, if nil, discards.
func New(repo *git.Repository, remote string, limiter *rate.Limiter, sink event.Sink, logger *log.Logger) *Probe {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Probe{repo: repo, remote: remote, limiter: limiter, sink: sink, log: logger}
}

// Check reports localRef's (a fully qualified virtual branch ref)
// standing against its remote-tracking ref, attributing ahead commits
// authored by userEmail to MyCommitsAhead, and emits a
// RemoteStatusUpdate event for key.
func (p *Probe) Check(ctx context.Context, key classify.Key, localRef, userEmail string) (Status, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Status{}, fmt.Errorf("remotestatus: rate limit: %w", err)
	}

	remoteRef := "refs/remotes/" + p.remote + "/" + strings.TrimPrefix(localRef, "refs/heads/")

	remoteTip, err := p.repo.PeelToCommit(ctx, remoteRef)
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			status := Status{Exists: false}
			p.emit(key, status)
			return status, nil
		}
		return Status{}, fmt.Errorf("remotestatus: resolve %s: %w", remoteRef, err)
	}

	localTip, err := p.repo.PeelToCommit(ctx, localRef)
	if err != nil {
		return Status{}, fmt.Errorf("remotestatus: resolve %s: %w", localRef, err)
	}

	ahead, err := p.commits(ctx, localTip.String(), remoteTip.String())
	if err != nil {
		return Status{}, fmt.Errorf("remotestatus: commits ahead: %w", err)
	}
	behind, err := p.commits(ctx, remoteTip.String(), localTip.String())
	if err != nil {
		return Status{}, fmt.Errorf("remotestatus: commits behind: %w", err)
	}

	var mine int
	unpushed := make([]git.Hash, 0, len(ahead))
	for _, rec := range ahead {
		unpushed = append(unpushed, rec.Hash)
		if userEmail != "" && rec.Author.Email == userEmail {
			mine++
		}
	}

	var lastPush *time.Time
	if when, ok, rerr := p.repo.ReflogLastTime(ctx, remoteRef); rerr == nil && ok {
		lastPush = &when
		p.log.Debug("remote status", "branch", key, "lastPush", humanize.Time(when))
	}

	status := Status{
		Exists:          true,
		CommitsAhead:    len(ahead),
		CommitsBehind:   len(behind),
		MyCommitsAhead:  mine,
		UnpushedCommits: unpushed,
		LastPushTime:    lastPush,
	}
	p.emit(key, status)
	return status, nil
}

func (p *Probe) commits(ctx context.Context, start, stop string) ([]git.CommitRecord, error) {
	var out []git.CommitRecord
	for rec, err := range p.repo.EnumerateCommits(ctx, stop, start) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Probe) emit(key classify.Key, status Status) {
	if p.sink == nil {
		return
	}
	p.sink.Emit(event.NewRemoteStatusUpdate(
		key, status.Exists, status.UnpushedCommits,
		status.CommitsAhead, status.CommitsBehind, status.MyCommitsAhead,
		status.LastPushTime,
	))
}
