package branchdeck

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/charmbracelet/log"

	"go.branchdeck.dev/engine/internal/cherrypick"
	"go.branchdeck.dev/engine/internal/event"
	"go.branchdeck.dev/engine/internal/git"
	"go.branchdeck.dev/engine/internal/integration"
	"go.branchdeck.dev/engine/internal/noteindex"
	"go.branchdeck.dev/engine/internal/remotestatus"
	"go.branchdeck.dev/engine/internal/suggest"
)

// Options configures an [Engine], overriding repository configuration
// for embedders that don't want to depend on on-disk `git config` at
// all (spec.md §6.1).
type Options struct {
	// UserPrefix namespaces virtual and archived branches. If empty,
	// read from the "branchdeck.branchprefix" configuration key.
	UserPrefix string

	// Remote is the name of the remote carrying mainline and the
	// virtual branches' upstream refs. Defaults to "origin".
	Remote string

	// WorkerCount bounds how many partitions are cherry-picked
	// concurrently. Defaults to a small multiple of GOMAXPROCS.
	WorkerCount int
}

func (o Options) withDefaults() Options {
	if o.Remote == "" {
		o.Remote = "origin"
	}
	if o.WorkerCount <= 0 {
		o.WorkerCount = 4 * runtime.GOMAXPROCS(0)
	}
	return o
}

// Engine drives one repository's virtual-branch synchronization
// (spec.md §4.9).
type Engine struct {
	repo        *git.Repository
	index       *noteindex.Index
	cherrypick  *cherrypick.Engine
	integration *integration.Detector
	remote      *remotestatus.Probe
	sink        event.Sink
	log         *log.Logger
	options     Options

	// Suggest proposes grouping prefixes for commits the Classifier
	// left unassigned. Optional; leave nil to skip suggestion lookups
	// entirely.
	Suggest suggest.Provider
}

// New builds an Engine wiring every component named in spec.md §2
// together over repo, reporting progress through sink.
func New(repo *git.Repository, sink event.Sink, opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	opts = opts.withDefaults()

	index := noteindex.New(repo, sink)
	return &Engine{
		repo:        repo,
		index:       index,
		cherrypick:  cherrypick.New(repo, index, sink),
		integration: integration.New(repo, sink),
		remote:      remotestatus.New(repo, opts.Remote, nil, sink, logger),
		sink:        sink,
		log:         logger,
		options:     opts,
	}
}

// resolveUserPrefix returns the configured Options.UserPrefix, or reads
// "branchdeck.branchprefix" from repository configuration if it wasn't
// set (spec.md §6.1).
func (e *Engine) resolveUserPrefix(ctx context.Context) (string, error) {
	if e.options.UserPrefix != "" {
		return e.options.UserPrefix, nil
	}

	cfg := git.NewConfig(git.ConfigOptions{Dir: e.repo.Root(), Log: e.log})
	value, ok, err := resolveConfigValue(ctx, cfg, branchPrefixKey)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", branchPrefixKey, err)
	}
	if !ok || value == "" {
		return "", &ConfigError{
			Reason: fmt.Sprintf("%s is not set and no UserPrefix override was given", branchPrefixKey),
		}
	}
	return value, nil
}

// resolveUserEmail reads the user identity used to attribute
// "mine" commits in remote status checks (spec.md §6.1).
func (e *Engine) resolveUserEmail(ctx context.Context) (string, error) {
	cfg := git.NewConfig(git.ConfigOptions{Dir: e.repo.Root(), Log: e.log})
	value, _, err := resolveConfigValue(ctx, cfg, "user.email")
	if err != nil {
		return "", fmt.Errorf("read user.email: %w", err)
	}
	return value, nil
}
