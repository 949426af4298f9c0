package scratch

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher logs filesystem events in a scratch-tier directory, surfacing
// external changes (another process touching a file WebDAV believes it
// owns). It only logs: it does not update or evict entries of the
// in-memory PerUserState disk map. The watch is not recursive, so changes
// inside subdirectories of the watched root, such as the per-user
// directories Manager creates, are not reported.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *logrus.Logger
	done    chan struct{}
}

// Watch starts watching root, logging every fsnotify event under
// log.WithField("component", "scratch-watch") until Close is called.
func Watch(root string, log *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, log: log, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.log.WithFields(logrus.Fields{
				"component": "scratch-watch",
				"path":      ev.Name,
				"op":        ev.Op.String(),
			}).Debug("scratch tier changed externally")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithField("component", "scratch-watch").Warn(err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
