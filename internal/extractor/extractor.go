package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/aecwatch/pkg/types"
)

// ErrNoExtractor is returned by Registry.Extract when nothing handles a path
var ErrNoExtractor = errors.New("no extractor registered")

// Extractor produces an opaque metadata payload for one file. The payload is
// stored verbatim; its format belongs to the extractor.
type Extractor interface {
	Extract(ctx context.Context, path string, c types.Classification) ([]byte, error)
}

// Func adapts a function to Extractor
type Func func(ctx context.Context, path string, c types.Classification) ([]byte, error)

func (f Func) Extract(ctx context.Context, path string, c types.Classification) ([]byte, error) {
	return f(ctx, path, c)
}

// Registry selects an extractor by lower-case file extension, falling back
// to a default when one is set.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]Extractor
	fallback Extractor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// NewDefaultRegistry registers the built-in extractors: PDF headers for .pdf
// and file facts for everything else.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".pdf", &PDFHeaderExtractor{})
	r.SetFallback(&FileInfoExtractor{})
	return r
}

// Register binds e to ext, replacing any previous binding
func (r *Registry) Register(ext string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt[normalizeExt(ext)] = e
}

// SetFallback sets the extractor used when no extension matches
func (r *Registry) SetFallback(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = e
}

// For returns the extractor that would handle path
func (r *Registry) For(path string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byExt[normalizeExt(filepath.Ext(path))]; ok {
		return e, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// Extract runs the extractor for path. Failures are wrapped with
// types.ErrExtractionFailed.
func (r *Registry) Extract(ctx context.Context, path string, c types.Classification) ([]byte, error) {
	e, ok := r.For(path)
	if !ok {
		return nil, ErrNoExtractor
	}
	payload, err := e.Extract(ctx, path, c)
	if err != nil {
		return nil, errors.Join(types.ErrExtractionFailed, err)
	}
	return payload, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
