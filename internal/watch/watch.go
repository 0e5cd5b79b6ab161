// Package watch refreshes the schema when SQL files containing DDL change on
// disk, e.g. migrations applied by another tool.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlsense/internal/schema"
)

// DefaultDebounce is the quiet period before changed files are read.
const DefaultDebounce = 100 * time.Millisecond

// Target receives the changed SQL. It starts a refresh when the SQL alters
// the catalog and returns nil otherwise; *engine.Engine satisfies it.
type Target interface {
	NotifyExecuted(sql string) <-chan schema.RefreshResult
}

// Options configures a Watcher.
type Options struct {
	Dirs       []string
	Debounce   time.Duration
	Extensions []string // default .sql
	Logger     *slog.Logger
}

// Watcher watches directories recursively and forwards changed SQL files to
// a Target after a debounce period.
type Watcher struct {
	target Target
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	wg      sync.WaitGroup
}

// New creates a watcher. Nothing is watched until Run.
func New(target Target, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".sql"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		target:  target,
		opts:    opts,
		logger:  opts.Logger,
		pending: make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled. Directories that cannot be watched are
// logged and skipped; Run fails only when the watcher cannot start.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, dir := range w.opts.Dirs {
		if err := watchDirRecursive(fw, dir); err != nil {
			w.logger.Error("failed to watch directory", "dir", dir, "error", err)
		}
	}

	defer w.wg.Wait()
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := watchDirRecursive(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}
	if !slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(event.Name))) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = struct{}{}
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		defer w.wg.Done()
		w.flush()
	})
}

// stop cancels a pending debounce. The cancelled callback never runs, so
// its WaitGroup slot is released here.
func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
}

func (w *Watcher) flush() {
	w.mu.Lock()
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	clear(w.pending)
	w.mu.Unlock()
	slices.Sort(files)

	var sql strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // paths come from watched directories
		if err != nil {
			w.logger.Debug("changed file vanished", "file", f, "error", err)
			continue
		}
		sql.Write(data)
		sql.WriteString("\n;\n")
	}

	ch := w.target.NotifyExecuted(sql.String())
	if ch == nil {
		w.logger.Debug("files changed without DDL", "files", files)
		return
	}
	w.logger.Info("DDL changed on disk, refreshing schema", "files", files)
	if res := <-ch; res.Err != nil {
		w.logger.Warn("schema refresh failed", "error", res.Err)
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
