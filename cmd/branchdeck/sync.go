package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"go.branchdeck.dev/engine/internal/branchdeck"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
)

type syncCmd struct {
	Prefix  string `name:"prefix" help:"Branch namespace; overrides branchdeck.branchprefix"`
	Remote  string `name:"remote" default:"origin" help:"Remote carrying mainline and virtual branch refs"`
	Workers int    `name:"workers" help:"Maximum partitions cherry-picked concurrently"`
}

func (cmd *syncCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: logger})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	sink := event.NewChan(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range sink.All() {
			logEvent(logger, e)
		}
	}()

	engine := branchdeck.New(repo, sink, branchdeck.Options{
		UserPrefix:  cmd.Prefix,
		Remote:      cmd.Remote,
		WorkerCount: cmd.Workers,
	}, logger)

	err = engine.Sync(ctx)
	sink.Close()
	<-done
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// logEvent renders one event as a structured log line. Field names track
// the event's own exported fields, not a generic dump, so the log stays
// readable under -v.
func logEvent(logger *log.Logger, e event.Event) {
	switch e := e.(type) {
	case event.BranchesGrouped:
		logger.Info("grouped commits", "partitions", len(e.Partitions))
	case event.UnassignedCommits:
		if len(e.Commits) > 0 {
			logger.Warn("commits left unassigned", "count", len(e.Commits))
		}
	case event.BranchStatusUpdate:
		logger.Info("branch status", "partition", e.Partition, "status", e.Status)
	case event.CommitSynced:
		logger.Debug("commit synced", "partition", e.Partition, "commit", e.Original.Short(), "status", e.Status)
	case event.CommitError:
		logger.Error("commit failed", "partition", e.Partition, "commit", e.Commit.Short(), "message", e.Message)
	case event.RemoteStatusUpdate:
		logger.Info("remote status", "partition", e.Partition, "exists", e.Exists,
			"ahead", e.CommitsAhead, "behind", e.CommitsBehind)
	case event.ArchivedBranchesFound:
		logger.Info("archived branches found", "count", len(e.Keys))
	case event.BranchIntegrationDetected:
		logger.Info("branch integration detected", "count", len(e.Branches))
	case event.NoteIndexInconsistency:
		logger.Warn("note index inconsistency", "reason", e.Reason)
	case event.Completed:
		logger.Info("sync complete")
	default:
		logger.Debug("event", "type", e.Type())
	}
}
