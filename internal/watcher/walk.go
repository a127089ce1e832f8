package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// Walk lists every file under root that filter accepts, sorted. Unreadable
// subdirectories are skipped; an unusable root is an error.
func Walk(ctx context.Context, root string, filter *Filter) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if err := validateRoot(root); err != nil {
		return nil, err
	}
	if filter == nil {
		if filter, err = NewFilter(DefaultExtensions, DefaultExcludePatterns); err != nil {
			return nil, err
		}
	}
	filter = filter.WithRoot(root)

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && filter.Accept(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
