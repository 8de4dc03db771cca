package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
	"github.com/softweb-fr/softweb-fr.github.io/internal/snapshot"
)

func runExport(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("blogctl export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to the configuration file")
	out := fs.String("out", "", "snapshot file to write, defaults to the configured path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ctx, err := setup(ctx, *configPath)
	if err != nil {
		logger := log.WithComponent("export")
		logger.Error().Err(err).Msg("cannot load configuration")
		return 1
	}
	logger := log.WithComponentFromContext(ctx, "export")

	outPath := *out
	if outPath == "" {
		outPath = cfg.Snapshot.Path
	}

	_, _, scan, err := buildIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("content scan failed")
		return 1
	}
	for _, p := range scan.Problems {
		logger.Warn().Str("path", p.Path).Err(p.Err).Msg("unparsable article left out of the snapshot")
	}

	metas, err := snapshot.FromArticles(scan.Articles)
	if err != nil {
		logger.Error().Err(err).Msg("cannot assemble snapshot")
		return 1
	}
	writer, err := snapshot.NewWriter()
	if err != nil {
		logger.Error().Err(err).Msg("cannot create snapshot writer")
		return 1
	}
	if err := writer.Write(outPath, metas); err != nil {
		logger.Error().Err(err).Str("path", outPath).Msg("snapshot write failed")
		return 1
	}

	fmt.Fprintf(stdout, "wrote %d articles to %s\n", len(metas), outPath)
	return 0
}
