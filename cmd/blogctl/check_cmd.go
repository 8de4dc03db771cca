package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/time/rate"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
	"github.com/softweb-fr/softweb-fr.github.io/internal/config"
	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/corpus"
	"github.com/softweb-fr/softweb-fr.github.io/internal/linkcheck"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
	"github.com/softweb-fr/softweb-fr.github.io/internal/snapshot"
)

func runCheck(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("blogctl check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to the configuration file")
	jsonOut := fs.Bool("json", false, "write the report as JSON")
	strict := fs.Bool("strict", false, "fail on warnings, unknown front matter keys become errors")
	changedOnly := fs.Bool("changed-only", false, "restrict findings to articles changed since the snapshot")
	noExternal := fs.Bool("no-external", false, "skip external link probing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ctx, err := setup(ctx, *configPath)
	if err != nil {
		logger := log.WithComponent("check")
		logger.Error().Err(err).Msg("cannot load configuration")
		return 1
	}
	logger := log.WithComponentFromContext(ctx, "check")

	// 1. Scan the content tree into the index.
	_, ix, scan, err := buildIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("content scan failed")
		return 1
	}

	// 2. Run the local rule families.
	rep := newRunner(cfg, ix, *strict).Run(ctx, scan)

	// 3. Probe external links, with the on-disk result cache around the run.
	if !*noExternal {
		rep.Add(probeExternal(ctx, cfg, scan.Articles)...)
	}

	// 4. Narrow to articles changed since the snapshot baseline.
	if *changedOnly {
		narrowToChanged(ctx, cfg, scan, rep)
	}
	rep.Finalize()

	// 5. Emit the report and derive the exit code.
	if *jsonOut {
		if err := writeJSON(stdout, rep); err != nil {
			logger.Error().Err(err).Msg("cannot write report")
			return 1
		}
	} else {
		printReport(stdout, rep)
	}

	failOn := check.SeverityError
	if *strict {
		failOn = check.SeverityWarning
	}
	return rep.ExitCode(failOn)
}

func newRunner(cfg config.Config, ix *corpus.Index, strict bool) *check.Runner {
	return &check.Runner{
		Index:          ix,
		ContentDir:     cfg.Site.ContentDir,
		StaticDir:      cfg.Site.StaticDir,
		Languages:      check.LanguageSet(cfg.Fences.ExtraLanguages),
		RequiredFields: cfg.FrontMatter.Require,
		Strict:         strict || cfg.FrontMatter.Strict,
	}
}

// probeExternal checks every external link, reading and writing the
// persisted result cache around the run. Cache trouble degrades to a
// warning, the probe itself still runs.
func probeExternal(ctx context.Context, cfg config.Config, articles []*content.Article) []check.Finding {
	logger := log.WithComponentFromContext(ctx, "linkcheck")

	cache := linkcheck.NewCache(cfg.Links.CachePath, cfg.Links.CacheTTL.Std())
	if err := cache.Load(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Links.CachePath).Msg("link cache unreadable, starting empty")
	}

	checker := linkcheck.New(linkcheck.Options{
		Timeout:     cfg.Links.Timeout.Std(),
		Concurrency: cfg.Links.Concurrency,
		MaxRetries:  cfg.Links.Retries,
		PerHost:     rate.Limit(cfg.Links.PerHostRPS),
		UserAgent:   fmt.Sprintf("blogctl-linkcheck/%s (+%s)", version, strings.TrimSuffix(cfg.Site.BaseURL, "/")),
		Skip:        cfg.Links.Skip,
		Cache:       cache,
	})
	findings := checker.Check(ctx, articles)

	if err := cache.Save(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Links.CachePath).Msg("link cache not saved")
	}
	return findings
}

// narrowToChanged drops findings for articles whose digest matches the
// snapshot baseline. Paths the baseline does not know, including files
// that failed to parse, always stay in.
func narrowToChanged(ctx context.Context, cfg config.Config, scan *corpus.ScanResult, rep *check.Report) {
	logger := log.WithComponentFromContext(ctx, "check")

	reader, err := snapshot.NewReader()
	if err != nil {
		logger.Warn().Err(err).Msg("snapshot reader unavailable, checking everything")
		return
	}
	before, err := reader.Read(cfg.Snapshot.Path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", cfg.Snapshot.Path).Msg("no snapshot baseline, checking everything")
		} else {
			logger.Warn().Err(err).Str("path", cfg.Snapshot.Path).Msg("snapshot baseline unreadable, checking everything")
		}
		return
	}

	after, err := snapshot.FromArticles(scan.Articles)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot derive snapshot state, checking everything")
		return
	}

	diff := snapshot.Compare(before, after)
	changed := make(map[string]bool, len(diff.Added)+len(diff.Changed))
	for _, p := range diff.Touched() {
		changed[p] = true
	}
	known := make(map[string]bool, len(after))
	for _, m := range after {
		known[m.Path] = true
	}

	kept := rep.Findings[:0]
	for _, f := range rep.Findings {
		if changed[f.Path] || !known[f.Path] {
			kept = append(kept, f)
		}
	}
	dropped := len(rep.Findings) - len(kept)
	rep.Findings = kept

	logger.Info().
		Int("changed", len(changed)).
		Int("removed", len(diff.Removed)).
		Int("dropped_findings", dropped).
		Msg("narrowed to changed articles")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport renders the report as text: one row per finding, then a
// summary line.
func printReport(w io.Writer, rep *check.Report) {
	if len(rep.Findings) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range rep.Findings {
			location := f.Path
			if f.Line > 0 {
				location = fmt.Sprintf("%s:%d", f.Path, f.Line)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", location, f.Severity, f.Rule, f.Message)
		}
		tw.Flush()
	}
	fmt.Fprintf(w, "%d articles checked, %d errors, %d warnings (%d ms)\n",
		rep.Articles, rep.Counts["error"], rep.Counts["warning"], rep.DurationMS)
}
