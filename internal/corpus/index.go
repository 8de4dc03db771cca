// Package corpus maintains the in-memory view of the article tree: a
// concurrent index keyed by file path, the published route table, query
// filtering and aggregate statistics.
package corpus

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/pkg/postql"
)

// Index stores parsed articles, newest first.
type Index struct {
	mu     sync.RWMutex
	byPath map[string]*content.Article
	sorted []*content.Article          // date descending, rebuilt on mutation
	routes map[string]*content.Article // normalized route -> article
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		byPath: make(map[string]*content.Article),
		routes: make(map[string]*content.Article),
	}
}

// Upsert inserts or replaces an article, keyed by its path.
func (ix *Index) Upsert(a *content.Article) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byPath[a.Path] = a
	ix.rebuild()
}

// Remove deletes the article at the given path. It reports whether an
// article was present.
func (ix *Index) Remove(relPath string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.byPath[relPath]; !ok {
		return false
	}
	delete(ix.byPath, relPath)
	ix.rebuild()
	return true
}

// ReplaceAll swaps the whole corpus in one step, as after a full scan.
func (ix *Index) ReplaceAll(articles []*content.Article) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byPath = make(map[string]*content.Article, len(articles))
	for _, a := range articles {
		ix.byPath[a.Path] = a
	}
	ix.rebuild()
}

// Get returns the article at the given path.
func (ix *Index) Get(relPath string) (*content.Article, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.byPath[relPath]
	return a, ok
}

// Len returns the number of indexed articles.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPath)
}

// All returns the articles, newest first.
func (ix *Index) All() []*content.Article {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*content.Article, len(ix.sorted))
	copy(out, ix.sorted)
	return out
}

// Filter returns up to limit articles matching a PostQL query, newest
// first. A limit <= 0 means no limit.
func (ix *Index) Filter(query string, limit int) ([]*content.Article, error) {
	node, err := postql.Parse(query)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var result []*content.Article
	for _, a := range ix.sorted {
		if limit > 0 && len(result) >= limit {
			break
		}
		if MatchQuery(node, a) {
			result = append(result, a)
		}
	}
	return result, nil
}

// Resolve looks up an article by published route ("/posts/slug") or by
// one of its aliases.
func (ix *Index) Resolve(route string) (*content.Article, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.routes[normalizeRoute(route)]
	return a, ok
}

// rebuild regenerates the sorted view and the route table.
// Callers must hold the write lock.
func (ix *Index) rebuild() {
	ix.sorted = ix.sorted[:0]
	ix.routes = make(map[string]*content.Article, len(ix.byPath)*2)

	for _, a := range ix.byPath {
		ix.sorted = append(ix.sorted, a)
		ix.routes[normalizeRoute(RouteFor(a))] = a
		for _, alias := range a.Aliases {
			ix.routes[normalizeRoute(alias)] = a
		}
	}

	sort.Slice(ix.sorted, func(i, j int) bool {
		ai, aj := ix.sorted[i], ix.sorted[j]
		if !ai.Date.Equal(aj.Date) {
			// Undated pages sort after dated articles.
			if ai.Date.IsZero() {
				return false
			}
			if aj.Date.IsZero() {
				return true
			}
			return ai.Date.After(aj.Date)
		}
		return ai.Path < aj.Path
	})
}

// RouteFor computes the published route of an article: section and slug
// for regular pages, the directory itself for branch bundles.
func RouteFor(a *content.Article) string {
	base := path.Base(a.Path)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "_index" {
		dir := path.Dir(a.Path)
		if dir == "." {
			return "/"
		}
		return "/" + dir
	}
	if a.Section == "" {
		return "/" + a.Slug
	}
	return "/" + a.Section + "/" + a.Slug
}

// normalizeRoute strips the trailing slash and guarantees a leading one,
// so "/posts/x/", "/posts/x" and "posts/x" land on the same key.
func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	if route == "" {
		return "/"
	}
	return route
}
