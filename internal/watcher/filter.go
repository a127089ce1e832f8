package watcher

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultExtensions is the accepted-extension allowlist
var DefaultExtensions = []string{
	".dwg", ".dxf", ".rvt", ".rfa", ".ifc", ".nwd", ".nwc",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".tif", ".tiff", ".txt", ".csv",
}

// DefaultExcludePatterns skips tool and cache directories
var DefaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/__pycache__/**",
	"**/temp/**",
}

// Filenames starting with these are editor or office temporaries
var tempPrefixes = []string{"~$", "~", "."}

// Filenames containing these are lock files
var lockMarkers = []string{".lock", "~lock", ".dwl"}

// Filter decides which paths enter the pending set
type Filter struct {
	root       string
	extensions map[string]struct{}
	excludes   []glob.Glob
}

// NewFilter builds a filter. An empty extensions list accepts every extension.
func NewFilter(extensions, excludePatterns []string) (*Filter, error) {
	f := &Filter{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = struct{}{}
	}

	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		f.excludes = append(f.excludes, g)
	}
	return f, nil
}

// Accept reports whether path is a file worth processing
func (f *Filter) Accept(path string) bool {
	name := filepath.Base(path)
	for _, prefix := range tempPrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	lower := strings.ToLower(name)
	for _, marker := range lockMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if len(f.extensions) > 0 {
		if _, ok := f.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			return false
		}
	}
	return !f.Excluded(path)
}

// WithRoot returns a copy of f that matches exclude patterns against paths
// relative to root, so directories above root never trigger them.
func (f *Filter) WithRoot(root string) *Filter {
	c := *f
	c.root = root
	return &c
}

// Excluded reports whether path matches an exclude pattern. Patterns are
// matched against the slash-separated path, rooted at "/" when the filter
// has a root, and against the base name.
func (f *Filter) Excluded(path string) bool {
	target := path
	if f.root != "" {
		if rel, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			target = string(filepath.Separator) + rel
			if strings.HasSuffix(path, string(filepath.Separator)) {
				target += string(filepath.Separator)
			}
		}
	}
	slashed := filepath.ToSlash(target)
	name := filepath.Base(path)
	for _, g := range f.excludes {
		if g.Match(slashed) || g.Match(name) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory should not be walked or watched
func (f *Filter) SkipDir(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	// A trailing slash lets "**/name/**" match the directory itself
	return f.Excluded(path) || f.Excluded(path+string(filepath.Separator))
}
