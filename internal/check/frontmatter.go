package check

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

// Front matter rule identifiers.
const (
	RuleFrontMatterParse = "frontmatter/parse"
	RuleFrontMatterTitle = "frontmatter/title"
	RuleFrontMatterDate  = "frontmatter/date"
	RuleSlugConflict     = "frontmatter/slug-conflict"
	RuleUnknownKeys      = "frontmatter/unknown-keys"
	RuleTagsFormat       = "frontmatter/tags-format"
	RuleRequiredField    = "frontmatter/required"
)

// CheckFrontMatter validates the schema fields of one article.
func CheckFrontMatter(a *content.Article) []Finding {
	var findings []Finding

	if strings.TrimSpace(a.Title) == "" {
		findings = append(findings, Finding{
			Rule:     RuleFrontMatterTitle,
			Severity: SeverityError,
			Path:     a.Path,
			Line:     1,
			Message:  "title is missing",
		})
	}

	if a.Date.IsZero() {
		// Drafts are allowed to stay undated until publication.
		severity := SeverityError
		if a.Draft {
			severity = SeverityWarning
		}
		msg := "date is missing"
		if a.RawDate != "" {
			msg = fmt.Sprintf("date %q is not in a supported format", a.RawDate)
		}
		findings = append(findings, Finding{
			Rule:     RuleFrontMatterDate,
			Severity: severity,
			Path:     a.Path,
			Line:     1,
			Message:  msg,
		})
	} else if !a.Draft && a.Date.After(time.Now().Add(24*time.Hour)) {
		// The generator drops future-dated pages from the build.
		findings = append(findings, Finding{
			Rule:     RuleFrontMatterDate,
			Severity: SeverityWarning,
			Path:     a.Path,
			Line:     1,
			Message:  fmt.Sprintf("date %s is in the future", a.Date.Format("2006-01-02")),
		})
	}

	if len(a.UnknownKeys) > 0 {
		findings = append(findings, Finding{
			Rule:     RuleUnknownKeys,
			Severity: SeverityWarning,
			Path:     a.Path,
			Line:     1,
			Message:  "unknown front matter keys: " + strings.Join(a.UnknownKeys, ", "),
		})
	}

	for _, tag := range a.Tags {
		if slug := content.Slugify(tag); slug != tag {
			findings = append(findings, Finding{
				Rule:     RuleTagsFormat,
				Severity: SeverityWarning,
				Path:     a.Path,
				Line:     1,
				Message:  fmt.Sprintf("tag %q is not a lowercase slug (want %q)", tag, slug),
			})
		}
	}

	return findings
}

// CheckRequiredFields enforces configured extra requirements beyond the
// title and date schema. Drafts only warn, like the date rule.
func CheckRequiredFields(a *content.Article, fields []string) []Finding {
	var findings []Finding
	for _, f := range fields {
		if requiredFieldSet(a, f) {
			continue
		}
		severity := SeverityError
		if a.Draft {
			severity = SeverityWarning
		}
		findings = append(findings, Finding{
			Rule:     RuleRequiredField,
			Severity: severity,
			Path:     a.Path,
			Line:     1,
			Message:  fmt.Sprintf("required front matter field %q is empty", f),
		})
	}
	return findings
}

func requiredFieldSet(a *content.Article, field string) bool {
	switch strings.ToLower(field) {
	case "title":
		return strings.TrimSpace(a.Title) != ""
	case "date":
		return !a.Date.IsZero()
	case "description":
		return strings.TrimSpace(a.Description) != ""
	case "slug":
		return a.FrontMatter.Slug != ""
	case "lang":
		return a.Lang != ""
	case "tags":
		return len(a.Tags) > 0
	case "categories":
		return len(a.Categories) > 0
	default:
		// Unknown names are rejected by config validation.
		return true
	}
}

// CheckSlugConflicts reports articles whose published routes collide.
// One finding is emitted per conflicting file.
func CheckSlugConflicts(articles []*content.Article, routeFor func(*content.Article) string) []Finding {
	byRoute := make(map[string][]*content.Article)
	for _, a := range articles {
		route := routeFor(a)
		byRoute[route] = append(byRoute[route], a)
	}

	routes := make([]string, 0, len(byRoute))
	for route := range byRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	var findings []Finding
	for _, route := range routes {
		group := byRoute[route]
		if len(group) < 2 {
			continue
		}
		paths := make([]string, 0, len(group))
		for _, a := range group {
			paths = append(paths, a.Path)
		}
		sort.Strings(paths)
		for _, a := range group {
			others := make([]string, 0, len(paths)-1)
			for _, p := range paths {
				if p != a.Path {
					others = append(others, p)
				}
			}
			findings = append(findings, Finding{
				Rule:     RuleSlugConflict,
				Severity: SeverityError,
				Path:     a.Path,
				Line:     1,
				Message:  fmt.Sprintf("route %s is also published by %s", route, strings.Join(others, ", ")),
			})
		}
	}
	return findings
}
