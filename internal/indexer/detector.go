package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/aecwatch/internal/storage"
)

// ChangeDetector decides whether a file needs reprocessing. It only reads.
type ChangeDetector struct {
	store storage.Storage
}

// NewChangeDetector creates a detector over store
func NewChangeDetector(store storage.Storage) *ChangeDetector {
	return &ChangeDetector{store: store}
}

// HasChanged reports true when no record exists for path or the stored digest
// differs from digest.
func (d *ChangeDetector) HasChanged(ctx context.Context, path, digest string) (bool, error) {
	existing, err := d.store.GetByPath(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return existing.Digest != digest, nil
}
