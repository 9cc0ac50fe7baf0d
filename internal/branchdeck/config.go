package branchdeck

import (
	"context"
	"regexp"

	"go.branchdeck.dev/engine/internal/git"
)

// branchPrefixKey is the configuration key holding the user's branch
// namespace (spec.md §6.1).
const branchPrefixKey = "branchdeck.branchprefix"

// ResolveBranchPrefix reads "branchdeck.branchprefix" from repo's
// configuration, for callers (e.g. cmd/branchdeck's push subcommand)
// that need the same namespace Engine.Sync would use without driving a
// full sync.
func ResolveBranchPrefix(ctx context.Context, repo *git.Repository) (string, bool, error) {
	cfg := git.NewConfig(git.ConfigOptions{Dir: repo.Root()})
	return resolveConfigValue(ctx, cfg, branchPrefixKey)
}

// resolveConfigValue reads key from cfg, local configuration taking
// precedence over global, per spec.md §6.1. It returns the last
// matching entry, since `git config --get-regexp` lists system, then
// global, then local entries in increasing precedence order.
func resolveConfigValue(ctx context.Context, cfg *git.Config, key string) (string, bool, error) {
	pattern := "^" + regexp.QuoteMeta(key) + "$"
	entries, err := cfg.ListRegexp(ctx, pattern)
	if err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	for entry, err := range entries {
		if err != nil {
			return "", false, err
		}
		value, found = entry.Value, true
	}
	return value, found, nil
}
