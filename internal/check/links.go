package check

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

// Link rule identifiers.
const (
	RuleLinkEmpty           = "links/empty"
	RuleLinkSpace           = "links/space"
	RuleLinkInternalMissing = "links/internal-missing"
	RuleLinkAnchorMissing   = "links/anchor-missing"
)

// Resolver finds articles by published route or by source path.
// *corpus.Index satisfies it.
type Resolver interface {
	Resolve(route string) (*content.Article, bool)
	Get(relPath string) (*content.Article, bool)
}

// LinkEnv carries what the link rules need to resolve targets.
type LinkEnv struct {
	Resolver   Resolver
	ContentDir string // article sources, for relative and source-path targets
	StaticDir  string // static assets served from the site root
}

// CheckLinks validates internal link targets and anchors of one article.
// External destinations are probed separately by the linkcheck package.
func CheckLinks(a *content.Article, env LinkEnv) []Finding {
	ownAnchors := anchorSet(a)

	var findings []Finding
	for _, l := range a.Links {
		dest := strings.TrimSpace(l.Dest)
		if dest == "" {
			findings = append(findings, Finding{
				Rule:     RuleLinkEmpty,
				Severity: SeverityError,
				Path:     a.Path,
				Line:     l.Line,
				Message:  "link destination is empty",
			})
			continue
		}

		if l.Kind != content.LinkSkip && strings.Contains(dest, " ") {
			findings = append(findings, Finding{
				Rule:     RuleLinkSpace,
				Severity: SeverityWarning,
				Path:     a.Path,
				Line:     l.Line,
				Message:  fmt.Sprintf("destination %q contains an unencoded space", dest),
			})
		}

		switch l.Kind {
		case content.LinkAnchor:
			if !ownAnchors[strings.ToLower(l.Fragment)] {
				findings = append(findings, Finding{
					Rule:     RuleLinkAnchorMissing,
					Severity: SeverityWarning,
					Path:     a.Path,
					Line:     l.Line,
					Message:  fmt.Sprintf("anchor #%s does not exist in this document", l.Fragment),
				})
			}
		case content.LinkInternal:
			findings = append(findings, checkInternal(a, l, env)...)
		}
	}

	return findings
}

func checkInternal(a *content.Article, l content.Link, env LinkEnv) []Finding {
	target := l.Target
	if target == "" {
		return nil
	}

	missing := func() []Finding {
		return []Finding{{
			Rule:     RuleLinkInternalMissing,
			Severity: SeverityError,
			Path:     a.Path,
			Line:     l.Line,
			Message:  fmt.Sprintf("internal link target %q does not resolve", l.Dest),
		}}
	}

	if strings.HasPrefix(target, "/") {
		if other, ok := env.Resolver.Resolve(target); ok {
			return checkFragment(a, other, l)
		}
		trimmed := strings.TrimPrefix(target, "/")
		if fileExists(env.StaticDir, trimmed) {
			return nil
		}
		if fileExists(env.ContentDir, trimmed) {
			return nil
		}
		return missing()
	}

	// Relative target, resolved against the article's own directory.
	rel := path.Join(path.Dir(a.Path), target)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return missing()
	}
	if other, ok := env.Resolver.Get(rel); ok {
		return checkFragment(a, other, l)
	}
	if fileExists(env.ContentDir, rel) {
		return nil
	}
	return missing()
}

// checkFragment verifies that the anchor part of a resolved link exists
// in the target document.
func checkFragment(from, to *content.Article, l content.Link) []Finding {
	if l.Fragment == "" {
		return nil
	}
	if anchorSet(to)[strings.ToLower(l.Fragment)] {
		return nil
	}
	return []Finding{{
		Rule:     RuleLinkAnchorMissing,
		Severity: SeverityWarning,
		Path:     from.Path,
		Line:     l.Line,
		Message:  fmt.Sprintf("anchor #%s does not exist in %s", l.Fragment, to.Path),
	}}
}

func anchorSet(a *content.Article) map[string]bool {
	set := make(map[string]bool, len(a.Headings))
	for _, h := range a.Headings {
		set[strings.ToLower(h.Anchor)] = true
	}
	return set
}

func fileExists(root, rel string) bool {
	if root == "" || rel == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil && info.Mode().IsRegular()
}
