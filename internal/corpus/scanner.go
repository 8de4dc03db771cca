package corpus

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// Problem records a file that could not be read or parsed.
type Problem struct {
	Path string
	Err  error
}

// ScanResult is the outcome of a full content scan.
type ScanResult struct {
	Articles []*content.Article
	Problems []Problem
	Files    int // Markdown files seen, including failed ones
	Elapsed  time.Duration
}

// Scanner reads a content tree from disk and parses every Markdown file.
type Scanner struct {
	root    string
	opts    content.ParseOptions
	workers int

	// Ignore holds glob patterns matched against the slash-separated
	// relative path and against the base name. Matching files are not
	// scanned.
	Ignore []string
}

// NewScanner creates a Scanner rooted at dir.
func NewScanner(dir string, opts content.ParseOptions) *Scanner {
	workers := runtime.GOMAXPROCS(0)
	if workers > 8 {
		workers = 8
	}
	return &Scanner{root: dir, opts: opts, workers: workers}
}

// Scan walks the content tree and parses all Markdown files concurrently.
// Files that fail to parse become Problems, not errors: one broken
// document must not take down a whole run.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	logger := log.WithComponentFromContext(ctx, "scanner")

	paths, err := s.collect()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	res := &ScanResult{Files: len(paths)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, relPath := range paths {
		relPath := relPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
			if err != nil {
				mu.Lock()
				res.Problems = append(res.Problems, Problem{Path: relPath, Err: err})
				mu.Unlock()
				return nil
			}

			a, err := content.Parse(relPath, data, s.opts)
			if err != nil {
				mu.Lock()
				res.Problems = append(res.Problems, Problem{Path: relPath, Err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			res.Articles = append(res.Articles, a)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(res.Articles, func(i, j int) bool { return res.Articles[i].Path < res.Articles[j].Path })
	sort.Slice(res.Problems, func(i, j int) bool { return res.Problems[i].Path < res.Problems[j].Path })

	res.Elapsed = time.Since(start)
	logger.Debug().
		Int("files", res.Files).
		Int("articles", len(res.Articles)).
		Int("problems", len(res.Problems)).
		Dur("elapsed", res.Elapsed).
		Msg("content scan finished")
	return res, nil
}

// ScanFile parses a single file below the content root, for incremental
// updates from the watcher.
func (s *Scanner) ScanFile(relPath string) (*content.Article, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	return content.Parse(relPath, data, s.opts)
}

// Root returns the content directory the scanner reads from.
func (s *Scanner) Root() string {
	return s.root
}

func (s *Scanner) collect() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !IsMarkdown(name) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)
		if s.Ignored(slashRel) {
			return nil
		}
		paths = append(paths, slashRel)
		return nil
	})
	return paths, err
}

// Ignored reports whether the Ignore patterns exclude a relative path.
func (s *Scanner) Ignored(rel string) bool {
	name := path.Base(rel)
	for _, pattern := range s.Ignore {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// IsMarkdown reports whether a file name looks like a Markdown document.
func IsMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
