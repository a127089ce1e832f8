package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/aecwatch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("storage closed")
)

// Storage defines the metadata store for observed files.
//
// UpsertRecord is keyed by path and safe for concurrent use: distinct paths
// proceed independently, writes to the same path are serialized and the last
// writer wins. UpsertRecord never changes IsCurrent on an existing record;
// currency is owned by SetCurrentFlags.
type Storage interface {
	// Record operations
	UpsertRecord(ctx context.Context, record *types.FileRecord) error
	Touch(ctx context.Context, path string, processedAt time.Time) error

	// Query operations
	GetByPath(ctx context.Context, path string) (*types.FileRecord, error)
	GetByGroup(ctx context.Context, key types.GroupKey) ([]*types.FileRecord, error)
	GetAllCurrentRevisions(ctx context.Context, project string) ([]*types.FileRecord, error)
	ListProjects(ctx context.Context) ([]string, error)
	CountByStatus(ctx context.Context) (map[types.Status]int, error)
	ProjectStats(ctx context.Context, project string) (*types.ProjectStats, error)

	// SetCurrentFlags applies path -> IsCurrent updates atomically
	SetCurrentFlags(ctx context.Context, flags map[string]bool) error

	// Batch history, newest first
	RecordBatch(ctx context.Context, batch *types.BatchRecord) error
	ListBatches(ctx context.Context, limit int) ([]*types.BatchRecord, error)

	// Database operations
	Close() error
}
