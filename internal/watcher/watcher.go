// Package watcher re-triggers ingestion when files under the data path
// change, with fsnotify and run-level debouncing.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 5 * time.Second

// Watcher watches a source directory tree and invokes a single callback once
// per burst of changes. One callback covers the whole run: ingestion is
// idempotent through the ledger, so re-running on any change is cheap.
type Watcher struct {
	root       string
	extensions []string
	trigger    func()
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	started bool
	done    chan struct{}
	stop    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet period before trigger fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher over root. trigger is called after the tree has been
// quiet for the debounce period following a change to a file with a matching
// extension (empty extensions = all files).
func New(root string, extensions []string, trigger func(), opts ...Option) *Watcher {
	w := &Watcher{
		root:       root,
		extensions: extensions,
		trigger:    trigger,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	if err := w.addTreeLocked(w.root); err != nil {
		_ = watcher.Close()
		w.watcher = nil
		w.mu.Unlock()
		return err
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watch started", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	// New directories join the watch so files created inside them are seen.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.addTreeLocked(ev.Name)
			}
			w.mu.Unlock()
			w.schedule()
			return
		}
	}
	if !w.matchExtension(ev.Name) {
		return
	}
	w.logger.Debug("source change", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.schedule()
}

// schedule resets the debounce timer; trigger fires once the tree stays
// quiet.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Info("source changed, re-ingesting", zap.String("root", w.root))
		if w.trigger != nil {
			w.trigger()
		}
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stop.Do(func() { close(w.done) })
}
