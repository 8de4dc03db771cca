package check

import (
	"fmt"
	"strings"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

// Fence rule identifiers.
const (
	RuleFenceUnclosed        = "fences/unclosed"
	RuleFenceUnknownLanguage = "fences/unknown-language"
	RuleFenceEmpty           = "fences/empty"
)

// defaultLanguages are the fence info strings accepted out of the box.
// The list follows what the highlighter of the published site supports.
var defaultLanguages = []string{
	"bash", "c", "console", "cpp", "css", "diff", "dockerfile", "go",
	"graphql", "hcl", "html", "http", "ini", "java", "javascript", "js",
	"json", "jsonc", "makefile", "markdown", "mermaid", "nginx", "php",
	"plain", "proto", "py", "python", "ruby", "rust", "scss", "sh",
	"shell", "sql", "text", "toml", "ts", "tsx", "typescript", "vue",
	"xml", "yaml", "yml", "zsh",
}

// LanguageSet builds the lookup used by CheckFences, merging the default
// languages with extra ones from configuration.
func LanguageSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(defaultLanguages)+len(extra))
	for _, l := range defaultLanguages {
		set[l] = true
	}
	for _, l := range extra {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			set[l] = true
		}
	}
	return set
}

// CheckFences validates the fenced code blocks of one article.
func CheckFences(a *content.Article, languages map[string]bool) []Finding {
	var findings []Finding

	for _, f := range a.Fences {
		if !f.Closed {
			findings = append(findings, Finding{
				Rule:     RuleFenceUnclosed,
				Severity: SeverityError,
				Path:     a.Path,
				Line:     f.Line,
				Message:  "code fence is never closed",
			})
			// An unclosed fence swallows the rest of the file, further
			// checks on it would only be noise.
			continue
		}

		if f.Empty {
			findings = append(findings, Finding{
				Rule:     RuleFenceEmpty,
				Severity: SeverityWarning,
				Path:     a.Path,
				Line:     f.Line,
				Message:  "code fence has no content",
			})
		}

		if f.Info != "" && !languages[strings.ToLower(f.Info)] {
			findings = append(findings, Finding{
				Rule:     RuleFenceUnknownLanguage,
				Severity: SeverityWarning,
				Path:     a.Path,
				Line:     f.Line,
				Message:  fmt.Sprintf("unknown code fence language %q", f.Info),
			})
		}
	}

	return findings
}
