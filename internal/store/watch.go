package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay lets an external editor finish writing before the file is read.
const reloadDelay = 100 * time.Millisecond

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch file: %w", err)
	}
	return data, nil
}

// Watch reloads the document whenever the backing file changes on disk,
// until ctx is done. The directory is watched so rename-based saves are seen.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	target, err := filepath.Abs(s.path)
	if err != nil {
		w.Close()
		return fmt.Errorf("resolve watch file: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name, _ := filepath.Abs(ev.Name)
				if name != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				time.Sleep(reloadDelay)
				if err := s.Reload(); err != nil {
					zap.L().Warn("watch file reload failed", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				zap.L().Warn("file watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
