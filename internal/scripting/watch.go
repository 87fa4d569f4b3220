package scripting

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changed .lua files under the script directories. Events
// are debounced per file and delivered on Events; the game loop decides when
// to call Engine.Reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *zap.Logger
	Events  chan string
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches scriptsDir and each of its known subdirectories that exist.
func NewWatcher(scriptsDir string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := []string{scriptsDir}
	for _, sub := range scriptDirs {
		dirs = append(dirs, filepath.Join(scriptsDir, sub))
	}
	watched := 0
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			log.Debug("script dir not watched", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: no script directories", scriptsDir)
	}

	watcher := &Watcher{
		watcher: w,
		log:     log,
		Events:  make(chan string, 16),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes Events. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.Events)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isScriptFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < 100*time.Millisecond {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("script watcher error", zap.Error(err))
		case <-w.closeCh:
			return
		}
	}
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".lua"
}
