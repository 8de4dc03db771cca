// Package watch follows the content tree and re-validates the corpus as
// files change, for a fast edit feedback loop.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
	"github.com/softweb-fr/softweb-fr.github.io/internal/corpus"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

const defaultDebounce = 300 * time.Millisecond

// Options tunes the watcher.
type Options struct {
	Debounce time.Duration       // per-path settle time before re-parsing
	OnReport func(*check.Report) // called after every re-validation
}

// Watcher pushes file changes into the index and re-runs the cheap rule
// families on each settled change. External links are not re-probed
// here, that pass belongs to a full check run.
type Watcher struct {
	scanner  *corpus.Scanner
	index    *corpus.Index
	runner   *check.Runner
	debounce time.Duration
	onReport func(*check.Report)
	watcher  *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a Watcher over the scanner's content root.
func New(scanner *corpus.Scanner, index *corpus.Index, runner *check.Runner, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	return &Watcher{
		scanner:  scanner,
		index:    index,
		runner:   runner,
		debounce: opts.Debounce,
		onReport: opts.OnReport,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Cancellation is the normal way to
// stop and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	w.watcher = fsw

	if err := w.addRecursive(w.scanner.Root()); err != nil {
		return err
	}

	logger := log.WithComponentFromContext(ctx, "watch")
	logger.Info().Str("dir", w.scanner.Root()).Msg("watching content directory")

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			logger.Info().Msg("watcher stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// addRecursive watches root and every non-hidden directory below it.
// fsnotify watches are not recursive on their own.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	logger := log.WithComponentFromContext(ctx, "watch")

	// Directories created after startup join the watch, so articles in
	// fresh bundles are still seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			return
		}
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !corpus.IsMarkdown(name) {
		return
	}

	rel, err := filepath.Rel(w.scanner.Root(), event.Name)
	if err != nil {
		return
	}
	relPath := filepath.ToSlash(rel)
	if w.scanner.Ignored(relPath) {
		return
	}

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		w.schedule(ctx, relPath, false)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.schedule(ctx, relPath, true)
	}
}

// schedule arms the debounce timer for one path, resetting any pending
// one. Editors fire bursts of events per save, only the last counts.
func (w *Watcher) schedule(ctx context.Context, relPath string, removed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[relPath]; ok {
		t.Stop()
	}
	w.timers[relPath] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, relPath)
		w.mu.Unlock()
		w.apply(ctx, relPath, removed)
	})
}

func (w *Watcher) apply(ctx context.Context, relPath string, removed bool) {
	logger := log.WithComponentFromContext(ctx, "watch")

	if removed {
		if w.index.Remove(relPath) {
			logger.Info().Str("path", relPath).Msg("article removed")
		}
		w.revalidate(ctx)
		return
	}

	a, err := w.scanner.ScanFile(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			if w.index.Remove(relPath) {
				logger.Info().Str("path", relPath).Msg("article removed")
				w.revalidate(ctx)
			}
			return
		}
		logger.Warn().Err(err).Str("path", relPath).Msg("reparse failed")
		w.revalidate(ctx, corpus.Problem{Path: relPath, Err: err})
		return
	}

	w.index.Upsert(a)
	logger.Info().Str("path", relPath).Str("title", a.Title).Msg("article updated")
	w.revalidate(ctx)
}

// revalidate re-runs the rule families over the whole index. Parse
// failures of the changed file ride along as problems.
func (w *Watcher) revalidate(ctx context.Context, problems ...corpus.Problem) {
	res := &corpus.ScanResult{
		Articles: w.index.All(),
		Problems: problems,
		Files:    w.index.Len() + len(problems),
	}
	rep := w.runner.Run(ctx, res)
	if w.onReport != nil {
		w.onReport(rep)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for relPath, t := range w.timers {
		t.Stop()
		delete(w.timers, relPath)
	}
}
