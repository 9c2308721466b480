package ui

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events an editor save
// produces into a single reload.
const watchDebounce = 250 * time.Millisecond

// DocumentWatcher watches one page document for modification. Editors
// commonly replace files on save, so the watch is placed on the parent
// directory and filtered by name.
type DocumentWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}
	errs    chan error
	done    chan struct{}
}

// NewDocumentWatcher starts watching the document at path.
func NewDocumentWatcher(path string) (*DocumentWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &DocumentWatcher{
		watcher: fsw,
		path:    filepath.Clean(path),
		changes: make(chan struct{}, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *DocumentWatcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				fire = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// Changes delivers one notification per coalesced document modification.
func (w *DocumentWatcher) Changes() <-chan struct{} { return w.changes }

// Errors delivers watcher failures.
func (w *DocumentWatcher) Errors() <-chan error { return w.errs }

// Close stops the watcher.
func (w *DocumentWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
