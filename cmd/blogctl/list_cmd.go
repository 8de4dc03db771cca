package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/corpus"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// listRow is the JSON and table shape of one listed article.
type listRow struct {
	Path    string   `json:"path"`
	Route   string   `json:"route"`
	Title   string   `json:"title"`
	Date    string   `json:"date,omitempty"`
	Section string   `json:"section,omitempty"`
	Lang    string   `json:"lang,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Draft   bool     `json:"draft,omitempty"`
	Words   int      `json:"words"`
}

func listRowFor(a *content.Article) listRow {
	r := listRow{
		Path:    a.Path,
		Route:   corpus.RouteFor(a),
		Title:   a.Title,
		Section: a.Section,
		Lang:    a.Lang,
		Tags:    a.Tags,
		Draft:   a.Draft,
		Words:   a.WordCount,
	}
	if !a.Date.IsZero() {
		r.Date = a.Date.Format("2006-01-02")
	}
	return r
}

func runList(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("blogctl list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to the configuration file")
	filter := fs.String("filter", "", "PostQL filter expression")
	jsonOut := fs.Bool("json", false, "write the listing as JSON")
	limit := fs.Int("limit", 0, "maximum number of articles, 0 for all")
	drafts := fs.Bool("drafts", false, "include drafts")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ctx, err := setup(ctx, *configPath)
	if err != nil {
		logger := log.WithComponent("list")
		logger.Error().Err(err).Msg("cannot load configuration")
		return 1
	}
	logger := log.WithComponentFromContext(ctx, "list")

	_, ix, _, err := buildIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("content scan failed")
		return 1
	}

	articles := ix.All()
	if *filter != "" {
		// A malformed expression is a usage error, same as a bad flag.
		articles, err = ix.Filter(*filter, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
			return 2
		}
	}

	rows := make([]listRow, 0, len(articles))
	for _, a := range articles {
		if a.Draft && !*drafts {
			continue
		}
		if *limit > 0 && len(rows) >= *limit {
			break
		}
		rows = append(rows, listRowFor(a))
	}

	if *jsonOut {
		if err := writeJSON(stdout, rows); err != nil {
			logger.Error().Err(err).Msg("cannot write listing")
			return 1
		}
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tROUTE\tLANG\tWORDS\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Date, r.Route, r.Lang, r.Words, r.Title)
	}
	tw.Flush()
	return 0
}

func runStats(ctx context.Context, args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("blogctl stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to the configuration file")
	jsonOut := fs.Bool("json", false, "write the statistics as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ctx, err := setup(ctx, *configPath)
	if err != nil {
		logger := log.WithComponent("stats")
		logger.Error().Err(err).Msg("cannot load configuration")
		return 1
	}
	logger := log.WithComponentFromContext(ctx, "stats")

	_, ix, _, err := buildIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("content scan failed")
		return 1
	}

	st := ix.Stats()
	if *jsonOut {
		if err := writeJSON(stdout, st); err != nil {
			logger.Error().Err(err).Msg("cannot write statistics")
			return 1
		}
		return 0
	}
	printStats(stdout, st)
	return 0
}

func printStats(w io.Writer, st corpus.Stats) {
	fmt.Fprintf(w, "Articles: %d (%d drafts)\n", st.Articles, st.Drafts)
	fmt.Fprintf(w, "Words: %d (~%d min of reading)\n", st.Words, st.ReadingMinutes)
	if st.Oldest != "" {
		fmt.Fprintf(w, "Dates: %s to %s\n", st.Oldest, st.Newest)
	}
	fmt.Fprintf(w, "Links: %d internal, %d external, %d anchors, %d images\n",
		st.Links.Internal, st.Links.External, st.Links.Anchors, st.Links.Images)

	printCounts(w, "Sections", st.Sections)
	printCounts(w, "Tags", st.Tags)
	printCounts(w, "Languages", st.Languages)
	printCounts(w, "Fences", st.FenceLanguages)

	if len(st.Years) > 0 {
		years := make([]int, 0, len(st.Years))
		for y := range st.Years {
			years = append(years, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(years)))
		fmt.Fprint(w, "Per year:")
		for i, y := range years {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, " %d (%d)", y, st.Years[y])
		}
		fmt.Fprintln(w)
	}
}

// printCounts renders one counter map, largest first, ties by name.
func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	fmt.Fprintf(w, "%s:", label)
	for i, e := range entries {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, " %s (%d)", e.name, e.count)
	}
	fmt.Fprintln(w)
}
