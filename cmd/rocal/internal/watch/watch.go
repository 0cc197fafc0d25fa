// Package watch reports batches of file changes under a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is one changed file in a batch
type Change struct {
	Path    string
	Removed bool // the file was deleted or renamed away
}

// Watcher collects file events and delivers them in batches once no new
// event has arrived for the debounce period
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	filter   func(path string) bool
}

// New watches roots and every directory below them. Hidden directories
// are skipped. filter selects the files worth reporting; nil reports all.
func New(roots []string, debounce time.Duration, filter func(string) bool) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{fs: fw, debounce: debounce, filter: filter}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	return w, nil
}

// addTree watches dir and its subdirectories
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run delivers batches to handle until ctx is done or the watcher is
// closed. Batches are sorted by path with one Change per file.
func (w *Watcher) Run(ctx context.Context, handle func([]Change)) error {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	defer debounce.Stop()

	pending := make(map[string]bool) // path -> removed

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Printf("⚠️  Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}

			if w.filter != nil && !w.filter(event.Name) {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			pending[event.Name] = event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
			debounce.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️  Watcher error: %v", err)

		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]Change, 0, len(pending))
			for path, removed := range pending {
				batch = append(batch, Change{Path: path, Removed: removed})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]bool)

			handle(batch)
		}
	}
}

// Extensions returns a filter accepting files with any of exts
func Extensions(exts ...string) func(string) bool {
	return func(path string) bool {
		for _, ext := range exts {
			if strings.HasSuffix(path, ext) {
				return true
			}
		}
		return false
	}
}
