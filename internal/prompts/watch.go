package prompts

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Loader serves the current library and, when backed by a file, reloads it
// whenever the file changes. A file that fails to parse leaves the previous
// library in place.
type Loader struct {
	path string
	log  *zap.Logger

	mu  sync.RWMutex
	lib *Library
}

// NewLoader loads the library at path, or the built-in one when path is empty.
func NewLoader(path string, log *zap.Logger) (*Loader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	lib, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Loader{path: path, log: log, lib: lib}, nil
}

// Library returns the most recently loaded library.
func (l *Loader) Library() *Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lib
}

// Reload re-reads the file immediately.
func (l *Loader) Reload() error {
	lib, err := LoadFile(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.lib = lib
	l.mu.Unlock()
	return nil
}

// Watch blocks until ctx is done, reloading on change. The directory is
// watched rather than the file so editors that replace the file on save are
// picked up.
func (l *Loader) Watch(ctx context.Context) error {
	if l.path == "" {
		<-ctx.Done()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(l.path)); err != nil {
		return err
	}

	target := filepath.Clean(l.path)
	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}
		case <-timer.C:
			if err := l.Reload(); err != nil {
				l.log.Warn("prompt library reload failed, keeping previous", zap.Error(err))
				continue
			}
			l.log.Info("prompt library reloaded", zap.String("path", l.path))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			l.log.Error("fsnotify error", zap.Error(err))
		}
	}
}
