// branchdeck is a thin demonstration CLI around the engine in
// go.branchdeck.dev/engine. Argument parsing and output formatting here
// carry no invariants of their own.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: isatty.IsTerminal(os.Stderr.Fd()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		logger.Warn("interrupted, waiting for in-flight git commands to stop")
		cancel()
	}()

	var cmd mainCmd
	kctx := kong.Parse(
		&cmd,
		kong.Name("branchdeck"),
		kong.Description("Splits a branch's commits into independent virtual branches by grouping key."),
		kong.Bind(logger, &cmd.globalOptions),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(kctx.Run())
}

type globalOptions struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
}

type mainCmd struct {
	globalOptions

	SyncCmd syncCmd `cmd:"" name:"sync" help:"Synchronize virtual branches from the current branch's commits"`
	PushCmd pushCmd `cmd:"" name:"push" help:"Push a virtual branch to its remote"`
}

func (cmd *mainCmd) AfterApply(logger *log.Logger) error {
	if cmd.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return nil
}
