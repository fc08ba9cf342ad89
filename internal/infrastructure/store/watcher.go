package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// Watcher turns filesystem changes on selected documents into a debounced
// signal. A burst of writes inside the debounce window collapses into one
// signal; the channel holds at most one pending signal, so a slow consumer
// never queues a backlog.
type Watcher struct {
	fw       *fsnotify.Watcher
	names    map[string]bool
	debounce time.Duration
	signals  chan struct{}
	log      logger.Interface
}

// NewWatcher watches the store directory for changes to the named documents.
func NewWatcher(dir string, names []string, debounce time.Duration, log logger.Interface) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &Watcher{
		fw:       fw,
		names:    set,
		debounce: debounce,
		signals:  make(chan struct{}, 1),
		log:      log,
	}, nil
}

// Signals returns the channel a signal is delivered on after each settled
// burst of changes.
func (w *Watcher) Signals() <-chan struct{} {
	return w.signals
}

// Run consumes filesystem events until the context is cancelled. It should
// run in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.fw.Close()
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debugw("document changed", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.signals <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.names[filepath.Base(ev.Name)]
}
