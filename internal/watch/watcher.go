// Package watch re-checks fix targets when they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AverEE0/lpfix/internal/fileutil"
	"github.com/AverEE0/lpfix/internal/fix"
	"github.com/AverEE0/lpfix/internal/logger"
)

// Event reports a recomputed fix status after a target changed.
type Event struct {
	Fix     string
	Path    string
	Status  fix.Status
	Applied bool
	Err     error
}

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	// Apply re-applies fixes whose target became pending.
	Apply bool
	Fix   fix.Options
	// Notify receives every recomputed status. It is called from the
	// debounce goroutine and must not block for long.
	Notify func(Event)
}

// Watcher monitors fix targets and recomputes their status on change.
type Watcher struct {
	root    string
	opts    Options
	watcher *fsnotify.Watcher
	targets map[string]fix.Fix

	running bool
	stopCh  chan struct{}
	mu      sync.RWMutex

	// Debouncing state
	pending   map[string]time.Time
	pendingMu sync.Mutex
}

// NewWatcher creates a watcher for every registered fix under root.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	targets := make(map[string]fix.Fix)
	for _, f := range fix.All() {
		targets[fix.TargetPath(absRoot, f.Metadata().Target)] = f
	}

	return &Watcher{
		root:    absRoot,
		opts:    opts,
		watcher: fsWatcher,
		targets: targets,
		stopCh:  make(chan struct{}),
		pending: make(map[string]time.Time),
	}, nil
}

// Start begins watching for target changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
		return fmt.Errorf("add directories: %w", err)
	}

	go w.processEvents()
	go w.processDebounced()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	return w.watcher.Close()
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// IsRunning returns whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// addDirectories watches the nearest existing directory of every target.
func (w *Watcher) addDirectories() error {
	added := make(map[string]bool)
	for path := range w.targets {
		dir := w.nearestExisting(filepath.Dir(path))
		if added[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		added[dir] = true
	}
	return nil
}

func (w *Watcher) nearestExisting(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		if dir == w.root {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// isTargetAncestor reports whether dir lies on the path to some target.
func (w *Watcher) isTargetAncestor(dir string) bool {
	prefix := dir + string(filepath.Separator)
	for path := range w.targets {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// processEvents handles file system events.
func (w *Watcher) processEvents() {
	log := logger.GetLogger()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			name := filepath.Clean(event.Name)

			// A missing parent of a target appeared: descend into it.
			if event.Op&fsnotify.Create != 0 && w.isTargetAncestor(name) {
				if info, err := os.Stat(name); err == nil && info.IsDir() {
					w.watchTree(name)
				}
				continue
			}

			if _, ok := w.targets[name]; !ok {
				continue
			}
			w.markPending(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// watchTree watches dir and every directory beneath it that leads to a
// target, then queues targets that already exist there. Subdirectories
// created together with dir never produce events of their own.
func (w *Watcher) watchTree(dir string) {
	log := logger.GetLogger()

	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot scan directory")
			return nil
		}

		if d.IsDir() {
			if !w.isTargetAncestor(path) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				log.Warn().Err(err).Str("dir", path).Msg("Cannot watch directory")
			}
			return nil
		}

		if _, ok := w.targets[path]; ok && fileutil.IsFile(path) {
			w.markPending(path)
		}
		return nil
	})
}

func (w *Watcher) markPending(path string) {
	w.pendingMu.Lock()
	w.pending[path] = time.Now()
	w.pendingMu.Unlock()
}

// processDebounced processes pending target changes after debounce delay.
func (w *Watcher) processDebounced() {
	interval := w.opts.Debounce / 2
	if interval <= 0 || interval > 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			for _, path := range w.takeStable() {
				w.recheck(path)
			}
		}
	}
}

// takeStable removes and returns targets that have been quiet long enough.
func (w *Watcher) takeStable() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	now := time.Now()
	var ready []string
	for path, changedAt := range w.pending {
		if now.Sub(changedAt) >= w.opts.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

func (w *Watcher) recheck(path string) {
	f := w.targets[path]
	meta := f.Metadata()
	log := logger.GetLogger()

	ev := Event{Fix: meta.Name, Path: path}

	change, err := f.Plan(w.root)
	if err != nil {
		ev.Err = err
		log.Warn().Err(err).Str("fix", meta.Name).Str("target", path).Msg("Cannot check target")
		w.notify(ev)
		return
	}
	ev.Status = change.Status

	switch {
	case change.Status == fix.StatusPending && w.opts.Apply:
		if _, err := fix.Apply(context.Background(), f, w.root, w.opts.Fix); err != nil {
			ev.Err = err
			log.Error().Err(err).Str("fix", meta.Name).Str("target", path).Msg("Re-apply failed")
		} else {
			ev.Applied = true
		}
	case change.Status == fix.StatusPending:
		log.Warn().Str("fix", meta.Name).Str("target", path).Msg("Target no longer matches fix")
	case change.Status == fix.StatusDrifted:
		log.Warn().Str("fix", meta.Name).Str("target", path).Msg("Target has drifted")
	default:
		log.Debug().Str("fix", meta.Name).Str("target", path).Msg("Target up to date")
	}

	w.notify(ev)
}

func (w *Watcher) notify(ev Event) {
	if w.opts.Notify != nil {
		w.opts.Notify(ev)
	}
}
