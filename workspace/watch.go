package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Watch caches the rendered tree and drops the cache whenever anything
// under the root changes. It returns once the watcher is registered; the
// watch stops when ctx is cancelled.
func (w *Workspace) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	if err := w.addWatches(watcher, w.root); err != nil {
		_ = watcher.Close()
		return err
	}

	w.mu.Lock()
	w.watching = true
	w.treeOK = false
	w.mu.Unlock()

	go func() {
		defer func() {
			_ = watcher.Close()
			w.mu.Lock()
			w.watching = false
			w.treeOK = false
			w.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				w.invalidateTree()
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.ignored(info.Name()) {
						if err := w.addWatches(watcher, event.Name); err != nil {
							log.Warn().Err(err).Str("path", event.Name).Msg("Could not watch new directory")
						}
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("File watcher error")
			}
		}
	}()

	log.Debug().Str("root", w.root).Msg("Watching project")
	return nil
}

// addWatches registers dir and every non-ignored directory below it.
func (w *Workspace) addWatches(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
}
