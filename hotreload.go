package scenelink

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultExtensions are the source extensions the watcher reacts to when
// none are given.
var DefaultExtensions = []string{".tsx", ".jsx", ".ts", ".js"}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events    int
	Reloads   int
	Errors    int
	LastPath  string
	LastEvent time.Time
}

// Watcher watches source directories and reports settled file changes.
// Rapid saves of the same file collapse into one onReload call once the file
// has been quiet for the debounce duration.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dirs        []string
	exts        map[string]bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onReload    func(path string)
	log         *zap.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       WatcherStats
}

// NewWatcher creates a watcher over dirs. exts filters by file extension
// (DefaultExtensions when empty). onReload receives cleaned absolute paths.
func NewWatcher(dirs, exts []string, debounce time.Duration, onReload func(path string), log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		watcher:     fw,
		dirs:        dirs,
		exts:        make(map[string]bool, len(exts)),
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		onReload:    onReload,
		log:         log,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		w.exts[e] = true
	}
	return w, nil
}

// Start adds the watched directories and begins processing events in a
// goroutine. Directories that cannot be watched are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("watch failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.log.Debug("watching", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.exts[filepath.Ext(event.Name)] {
		return
	}
	// Removes are ignored: the render host only re-renders files it can read.
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	path := event.Name
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastPath = path
	w.stats.LastEvent = time.Now()
	w.debounceMap[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced reports files that have settled past the debounce window.
func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.stats.Reloads += len(settled)
	w.mu.Unlock()

	for _, path := range settled {
		w.log.Debug("source changed", zap.String("path", path))
		if w.onReload != nil {
			w.onReload(path)
		}
	}
}
