package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/pyimport-graph/pkg/finder"
	"github.com/ritzau/pyimport-graph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeSource is a source file created, written, removed or renamed.
	ChangeTypeSource ChangeType = iota
	// ChangeTypeDirectory is a directory created or removed below the root.
	ChangeTypeDirectory
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeSource:
		return "source"
	case ChangeTypeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchDelay = 100 * time.Millisecond

// FileWatcher watches every directory below a root for source changes.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	opts    finder.Options
	events  chan ChangeEvent

	mu        sync.Mutex
	dirs      map[string]bool
	closeOnce sync.Once
}

// NewFileWatcher creates a watcher for root. opts selects which files count
// as sources and which directories are left alone.
func NewFileWatcher(root string, opts finder.Options) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		root:    root,
		opts:    opts,
		events:  make(chan ChangeEvent, 100),
		dirs:    make(map[string]bool),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	n, err := fw.watchTree(fw.root)
	if err != nil {
		return err
	}
	logging.Info("started watching root", "path", fw.root, "directories", n)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds dir and every non-excluded directory below it.
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logging.Debug("skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != fw.root && finder.SkipDir(fw.root, path, fw.opts) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		fw.mu.Lock()
		fw.dirs[path] = true
		fw.mu.Unlock()
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return count, nil
}

// classify maps an fsnotify event onto a change type.
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if finder.SkipDir(fw.root, event.Name, fw.opts) {
				return 0, false
			}
			if _, err := fw.watchTree(event.Name); err != nil {
				logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return ChangeTypeDirectory, true
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		fw.mu.Lock()
		wasDir := fw.dirs[event.Name]
		delete(fw.dirs, event.Name)
		fw.mu.Unlock()
		if wasDir {
			return ChangeTypeDirectory, true
		}
	}

	if event.Op == fsnotify.Chmod {
		return 0, false
	}
	if finder.HasSourceExtension(filepath.Base(event.Name), fw.opts.Extensions) {
		return ChangeTypeSource, true
	}
	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeDirectory, ChangeTypeSource} {
			if paths := pending[t]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			t, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("file change", "path", event.Name, "op", event.Op.String(), "type", t.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// WatchedDirs returns the number of watched directories.
func (fw *FileWatcher) WatchedDirs() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.dirs)
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.closeOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
