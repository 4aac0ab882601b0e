package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// WatchFile watches path (an optional --config-file an operator may use
// to track allow/block-list edits out of band) and logs a notice on
// every write or create event, until the returned watcher is closed.
// This is observability only: it does not parse path's contents or
// mutate the running Config. --allow/--block remain fixed for the
// process lifetime once Execute starts the loops; an edit here is
// surfaced in the log, not applied.
func WatchFile(path string, log *logrus.Entry) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.WithField("file", event.Name).Info("config file changed on disk; restart ephc to apply edits")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config file watch error")
			}
		}
	}()

	return watcher, nil
}
