package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventBuffer decouples the OS notification queue from the batcher loop
const eventBuffer = 256

// FSNotifySource watches a directory tree with fsnotify. Directories created
// after Subscribe are added as they appear.
type FSNotifySource struct {
	filter *Filter
	logger *slog.Logger
}

// NewFSNotifySource creates a source. Directories rejected by filter.SkipDir
// are not watched; a nil filter watches everything.
func NewFSNotifySource(filter *Filter, logger *slog.Logger) *FSNotifySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSNotifySource{filter: filter, logger: logger}
}

// Subscribe starts watching root. The returned channel is closed once ctx is
// cancelled and the underlying watcher has shut down.
func (s *FSNotifySource) Subscribe(ctx context.Context, root string) (<-chan ChangeEvent, error) {
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	filter := s.filter
	if filter != nil {
		filter = filter.WithRoot(root)
	}
	sub := &subscription{watcher: w, filter: filter, logger: s.logger}
	if err := sub.addRecursive(root, nil); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan ChangeEvent, eventBuffer)
	go sub.run(ctx, out)
	return out, nil
}

type subscription struct {
	watcher *fsnotify.Watcher
	filter  *Filter
	logger  *slog.Logger
}

func (s *subscription) run(ctx context.Context, out chan<- ChangeEvent) {
	defer close(out)
	defer func() { _ = s.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			for _, ev := range s.translate(event) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// fsOpMappings maps fsnotify operations to ours. Order matters: first match
// wins. Chmod is attribute noise and is dropped.
var fsOpMappings = []struct {
	fsOp fsnotify.Op
	op   Op
}{
	{fsnotify.Create, OpCreate},
	{fsnotify.Write, OpModify},
	{fsnotify.Rename, OpRename},
	{fsnotify.Remove, OpRemove},
}

func mapOp(op fsnotify.Op) (Op, bool) {
	for _, m := range fsOpMappings {
		if op.Has(m.fsOp) {
			return m.op, true
		}
	}
	return 0, false
}

// translate converts one fsnotify event. A created directory is watched and
// the files already inside it are reported, since they may have been written
// before the watch was added.
func (s *subscription) translate(event fsnotify.Event) []ChangeEvent {
	op, ok := mapOp(event.Op)
	if !ok {
		return nil
	}
	now := time.Now()

	if op == OpCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if s.filter != nil && s.filter.SkipDir(event.Name) {
				return nil
			}
			var found []ChangeEvent
			_ = s.addRecursive(event.Name, func(path string) {
				found = append(found, ChangeEvent{Path: path, Op: OpCreate, Time: now})
			})
			return found
		}
	}
	return []ChangeEvent{{Path: event.Name, Op: op, Time: now}}
}

// addRecursive watches dir and its subdirectories, calling onFile for each
// regular file found when onFile is non-nil.
func (s *subscription) addRecursive(dir string, onFile func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip paths with errors
		}
		if !d.IsDir() {
			if onFile != nil && d.Type().IsRegular() {
				onFile(path)
			}
			return nil
		}
		if path != dir && s.filter != nil && s.filter.SkipDir(path) {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
}

// validateRoot checks that root exists and is a directory
func validateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return ErrPathNotDirectory
	}
	return nil
}
