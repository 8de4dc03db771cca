package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/softweb-fr/softweb-fr.github.io/internal/config"
	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/corpus"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

var (
	version   = "v1.4.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return 0
	}

	// A signal cancels the context so long operations unwind cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "check":
		return runCheck(ctx, args[1:], stdout)
	case "list":
		return runList(ctx, args[1:], stdout)
	case "stats":
		return runStats(ctx, args[1:], stdout)
	case "export":
		return runExport(ctx, args[1:], stdout)
	case "watch":
		return runWatch(ctx, args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "blogctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  blogctl check [-config path] [-json] [-strict] [-changed-only] [-no-external]")
	fmt.Fprintln(os.Stderr, "  blogctl list [-filter expr] [-json] [-limit n] [-drafts]")
	fmt.Fprintln(os.Stderr, "  blogctl stats [-json]")
	fmt.Fprintln(os.Stderr, "  blogctl export [-out site.swc]")
	fmt.Fprintln(os.Stderr, "  blogctl watch [-config path]")
	fmt.Fprintln(os.Stderr, "  blogctl version")
}

// setup loads the configuration and prepares logging. The run ID in the
// returned context ties log lines and the report together.
func setup(ctx context.Context, configPath string) (config.Config, context.Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, ctx, err
	}
	log.Configure(log.Config{Level: cfg.Log.Level})
	return cfg, log.ContextWithRunID(ctx, uuid.NewString()), nil
}

// buildIndex scans the content tree and loads the result into a fresh index.
func buildIndex(ctx context.Context, cfg config.Config) (*corpus.Scanner, *corpus.Index, *corpus.ScanResult, error) {
	scanner := corpus.NewScanner(cfg.Site.ContentDir, content.ParseOptions{BaseURL: cfg.SiteURL()})
	scanner.Ignore = cfg.Scan.Ignore
	res, err := scanner.Scan(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	ix := corpus.NewIndex()
	ix.ReplaceAll(res.Articles)
	return scanner, ix, res, nil
}
