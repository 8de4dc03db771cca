package check

import (
	"context"

	"github.com/softweb-fr/softweb-fr.github.io/internal/corpus"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// Runner executes every rule family over one scan result.
type Runner struct {
	Index          *corpus.Index
	ContentDir     string
	StaticDir      string
	Languages      map[string]bool // fence languages, nil means the default set
	RequiredFields []string        // extra front matter requirements
	Strict         bool            // unknown front matter keys become errors
}

// Run validates the scanned corpus and returns the finalized report.
// Files that failed to parse become frontmatter/parse findings so a
// broken document fails the run instead of silently vanishing from it.
func (r *Runner) Run(ctx context.Context, scan *corpus.ScanResult) *Report {
	logger := log.WithComponentFromContext(ctx, "check")

	languages := r.Languages
	if languages == nil {
		languages = LanguageSet(nil)
	}
	env := LinkEnv{Resolver: r.Index, ContentDir: r.ContentDir, StaticDir: r.StaticDir}

	rep := NewReport()
	if id := log.RunIDFromContext(ctx); id != "" {
		rep.RunID = id
	}
	rep.Articles = len(scan.Articles)

	for _, p := range scan.Problems {
		rep.Add(Finding{
			Rule:     RuleFrontMatterParse,
			Severity: SeverityError,
			Path:     p.Path,
			Line:     1,
			Message:  p.Err.Error(),
		})
	}

	for _, a := range scan.Articles {
		fm := CheckFrontMatter(a)
		if r.Strict {
			for i := range fm {
				if fm[i].Rule == RuleUnknownKeys {
					fm[i].Severity = SeverityError
				}
			}
		}
		rep.Add(fm...)
		rep.Add(CheckRequiredFields(a, r.RequiredFields)...)
		rep.Add(CheckFences(a, languages)...)
		rep.Add(CheckLinks(a, env)...)
	}
	rep.Add(CheckSlugConflicts(scan.Articles, corpus.RouteFor)...)

	rep.Finalize()

	logger.Info().
		Str("run_id", rep.RunID).
		Int("articles", rep.Articles).
		Int("findings", len(rep.Findings)).
		Str("worst", rep.Worst().String()).
		Int64("duration_ms", rep.DurationMS).
		Msg("check run complete")

	return rep
}
