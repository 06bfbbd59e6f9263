// Package reload watches the config file and triggers a server reload
// when it changes, in addition to the §4.8 reload flag set by the admin
// interface. Uses fsnotify the same way a log-follower watches a file
// for appends.
package reload

import (
	"github.com/fsnotify/fsnotify"

	"github.com/barnettlynn/ncamd/internal/logging"
)

// Triggerer is the subset of *newcamd.Server the watcher needs.
type Triggerer interface {
	RequestReload()
}

// Watcher watches one or more config files and calls RequestReload on
// write, rename or create events (editors commonly replace a file via
// rename).
type Watcher struct {
	fsw *fsnotify.Watcher
	log *logging.Logger
}

// New starts watching paths, calling server.RequestReload() whenever one
// of them changes. Call Close to stop.
func New(server Triggerer, log *logging.Logger, paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{fsw: fsw, log: log}
	go w.loop(server)
	return w, nil
}

func (w *Watcher) loop(server Triggerer) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Create) != 0 {
				w.log.Info(logging.CatConfig, "config change detected (%s): %s", event.Op, event.Name)
				server.RequestReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
