package frontend

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/mdfront/mdfront/pkg/logger"
)

// Watcher flags a media file as changed.
// The dir is watched, editors and copy tools often replace files.
type Watcher struct {
	w       *fsnotify.Watcher
	path    string
	changed atomic.Bool
	done    chan struct{}
	log     *logger.Logger
}

func NewWatcher(path string, log *logger.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{w: fw, path: abs, done: make(chan struct{}), log: log}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug().Str("op", event.Op.String()).Msg("media changed")
				w.changed.Store(true)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("media watch")
		}
	}
}

// Changed reports a change once.
func (w *Watcher) Changed() bool { return w.changed.Swap(false) }

func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	return err
}
