package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"go.branchdeck.dev/engine/internal/branchdeck"
	"go.branchdeck.dev/engine/internal/classify"
	"go.branchdeck.dev/engine/internal/git"
)

// pushCmd wraps the Driver's existing push (spec.md §6.4's "separate push
// action"), targeting one virtual branch's ref by its partition key.
type pushCmd struct {
	Key    string `arg:"" help:"Partition key of the virtual branch to push"`
	Prefix string `name:"prefix" help:"Branch namespace; overrides branchdeck.branchprefix"`
	Remote string `name:"remote" default:"origin" help:"Remote to push to"`
	Force  bool   `name:"force" help:"Force the push unconditionally"`
}

func (cmd *pushCmd) Run(ctx context.Context, logger *log.Logger) error {
	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: logger})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	prefix := cmd.Prefix
	if prefix == "" {
		value, ok, err := branchdeck.ResolveBranchPrefix(ctx, repo)
		if err != nil {
			return fmt.Errorf("read branch prefix: %w", err)
		}
		if !ok {
			return fmt.Errorf("no --prefix given and branchdeck.branchprefix is not set")
		}
		prefix = value
	}

	vb := branchdeck.VirtualBranch{UserPrefix: prefix, Key: classify.Key{Kind: classify.KindExplicit, Value: cmd.Key}}
	ref := vb.Ref()

	if err := repo.Push(ctx, git.PushOptions{
		Remote:  cmd.Remote,
		Refspec: ref + ":" + ref,
		Force:   cmd.Force,
	}); err != nil {
		return fmt.Errorf("push %s: %w", ref, err)
	}

	logger.Info("pushed", "ref", ref, "remote", cmd.Remote)
	return nil
}
