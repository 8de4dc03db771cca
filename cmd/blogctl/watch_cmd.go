package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
	"github.com/softweb-fr/softweb-fr.github.io/internal/watch"
)

func runWatch(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("blogctl watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to the configuration file")
	noExternal := fs.Bool("no-external", false, "skip external link probing on the initial pass")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ctx, err := setup(ctx, *configPath)
	if err != nil {
		logger := log.WithComponent("watch")
		logger.Error().Err(err).Msg("cannot load configuration")
		return 1
	}
	logger := log.WithComponentFromContext(ctx, "watch")

	scanner, ix, scan, err := buildIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("content scan failed")
		return 1
	}
	runner := newRunner(cfg, ix, false)

	// Initial pass over everything, external links included. Edits later
	// re-run only the cheap local rules.
	rep := runner.Run(ctx, scan)
	if !*noExternal {
		rep.Add(probeExternal(ctx, cfg, scan.Articles)...)
		rep.Finalize()
	}
	printReport(stdout, rep)

	w := watch.New(scanner, ix, runner, watch.Options{
		OnReport: func(rep *check.Report) { printReport(stdout, rep) },
	})
	if err := w.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("watcher failed")
		return 1
	}
	return 0
}
