package ignore

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

// Watcher reloads an ignore configuration file into a Store whenever it changes.
// A file that fails to parse leaves the previous matcher in place.
type Watcher struct {
	path      string
	store     *Store
	logger    logging.Interface
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	onReload  func(*Matcher)
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// WatchFile loads path into store and keeps it current until Close is called.
func WatchFile(path string, store *Store, logger logging.Interface) (*Watcher, error) {
	return newWatcher(path, store, logger, config.IgnoreWatchDebounce, nil)
}

func newWatcher(path string, store *Store, logger logging.Interface, debounce time.Duration, onReload func(*Matcher)) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("ignore store is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ignore config path: %w", err)
	}

	cfg, err := LoadFile(abs)
	if err != nil {
		return nil, err
	}
	store.Replace(cfg.Matcher())

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files by rename, which drops a file watch.
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:      abs,
		store:     store,
		logger:    logging.OrNoop(logger),
		watcher:   fsWatcher,
		debounce:  debounce,
		onReload:  onReload,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	go w.eventLoop()
	return w, nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	err := w.watcher.Close()
	<-w.stoppedCh
	return err
}

func (w *Watcher) eventLoop() {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !isRelevantFSEvent(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceCh = debounceTimer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("ignore config watcher error: %v", err), "IgnoreWatcher")

		case <-debounceCh:
			debounceCh = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn(fmt.Sprintf("Keeping previous ignore patterns: %v", err), "IgnoreWatcher")
		return
	}
	next := cfg.Matcher()
	w.store.Replace(next)
	w.logger.Info(fmt.Sprintf("Reloaded %d ignore pattern(s) from %s", next.Len(), w.path), "IgnoreWatcher")
	if w.onReload != nil {
		w.onReload(next)
	}
}

func isRelevantFSEvent(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
