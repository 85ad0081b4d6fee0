package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/scalapatisserie/muffin-site/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher turns file changes below a set of directories into rebuild
// triggers. Bursts of events collapse into a single trigger.
type Watcher struct {
	dirs     []string
	ignore   []string // absolute paths never watched, ex: the output directory
	debounce time.Duration
	trigger  chan<- struct{}
	logger   logger.Logger

	mu    sync.Mutex
	timer *time.Timer

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher sending on trigger. Sends never block: a
// trigger already pending absorbs new ones.
func NewWatcher(dirs, ignore []string, debounce time.Duration, trigger chan<- struct{}, log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if a, err := filepath.Abs(p); err == nil {
			abs = append(abs, a)
		}
	}
	return &Watcher{
		dirs:     dirs,
		ignore:   abs,
		debounce: debounce,
		trigger:  trigger,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start registers every directory and begins forwarding events
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fw

	watched := 0
	for _, dir := range w.dirs {
		n, err := w.addDirsRecursive(dir)
		if err != nil {
			_ = fw.Close()
			return err
		}
		watched += n
	}
	w.logger.Info("watching sources for changes",
		logger.Strings("roots", w.dirs),
		logger.Int("directories", watched),
		logger.Duration("debounce", w.debounce))

	go w.loop(ctx)
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", logger.Error(err))
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.shouldIgnore(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if _, err := w.addDirsRecursive(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					logger.String("path", ev.Name),
					logger.Error(err))
			}
		}
	}
	w.logger.Debug("source changed",
		logger.String("path", ev.Name),
		logger.String("op", ev.Op.String()))
	w.schedule()
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

// shouldIgnore filters editor temp files, hidden files and ignored trees.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ig := range w.ignore {
		if abs == ig || strings.HasPrefix(abs, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addDirsRecursive watches root and every directory below it. A missing
// root is skipped.
func (w *Watcher) addDirsRecursive(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return fs.SkipDir
		}
		if d.Name() == "node_modules" {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}
