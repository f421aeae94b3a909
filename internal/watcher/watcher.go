package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a set of files. Parent directories are watched
// rather than the files themselves so that replace-by-rename writes keep
// being observed after the original inode is gone.
type Watcher struct {
	paths    map[string]struct{}
	onChange func()
	fsw      *fsnotify.Watcher
}

// New creates a watcher that calls onChange for every filesystem event on
// any of paths, whatever the operation. Events for other files in the same
// directories are ignored.
func New(onChange func(), paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		onChange: onChange,
		fsw:      fsw,
	}

	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve watch path: %w", err)
		}
		w.paths[abs] = struct{}{}

		dir := filepath.Dir(abs)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	return w, nil
}

// Run dispatches events until ctx is done. The underlying watcher is closed
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if _, ok := w.paths[filepath.Clean(event.Name)]; !ok {
				continue
			}
			log.Printf("%s changed (%s), invalidating stats cache", filepath.Base(event.Name), event.Op)
			w.onChange()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}
