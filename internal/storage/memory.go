package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/dshills/aecwatch/pkg/types"
)

// MemoryStorage is a process-local Storage backed by two indexes: by path and
// by group key. A single mutex serializes writers.
type MemoryStorage struct {
	mu      sync.RWMutex
	byPath  map[string]*types.FileRecord
	byGroup map[types.GroupKey]map[string]struct{}
	batches []*types.BatchRecord
	closed  bool
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byPath:  make(map[string]*types.FileRecord),
		byGroup: make(map[types.GroupKey]map[string]struct{}),
	}
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStorage) UpsertRecord(ctx context.Context, record *types.FileRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	stored := record.Clone()
	stored.IsCurrent = false
	if existing, ok := m.byPath[record.Path]; ok {
		stored.IsCurrent = existing.IsCurrent
		m.unindex(existing)
	}
	m.byPath[stored.Path] = stored
	m.index(stored)

	record.IsCurrent = stored.IsCurrent
	return nil
}

func (m *MemoryStorage) index(r *types.FileRecord) {
	key := r.Group()
	paths, ok := m.byGroup[key]
	if !ok {
		paths = make(map[string]struct{})
		m.byGroup[key] = paths
	}
	paths[r.Path] = struct{}{}
}

func (m *MemoryStorage) unindex(r *types.FileRecord) {
	key := r.Group()
	if paths, ok := m.byGroup[key]; ok {
		delete(paths, r.Path)
		if len(paths) == 0 {
			delete(m.byGroup, key)
		}
	}
}

func (m *MemoryStorage) Touch(ctx context.Context, path string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	r, ok := m.byPath[path]
	if !ok {
		return ErrNotFound
	}
	r.LastProcessedAt = processedAt
	return nil
}

func (m *MemoryStorage) GetByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	r, ok := m.byPath[path]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStorage) GetByGroup(ctx context.Context, key types.GroupKey) ([]*types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	paths := lo.Keys(m.byGroup[key])
	sort.Strings(paths)

	records := make([]*types.FileRecord, 0, len(paths))
	for _, p := range paths {
		records = append(records, m.byPath[p].Clone())
	}
	return records, nil
}

func (m *MemoryStorage) GetAllCurrentRevisions(ctx context.Context, project string) ([]*types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	records := make([]*types.FileRecord, 0)
	for _, r := range m.byPath {
		if r.Project == project && r.IsCurrent {
			records = append(records, r.Clone())
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].DisciplineCode != records[j].DisciplineCode {
			return records[i].DisciplineCode < records[j].DisciplineCode
		}
		return records[i].Sheet < records[j].Sheet
	})
	return records, nil
}

func (m *MemoryStorage) ListProjects(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	projects := lo.Uniq(lo.FilterMap(lo.Values(m.byPath), func(r *types.FileRecord, _ int) (string, bool) {
		return r.Project, r.Project != ""
	}))
	sort.Strings(projects)
	return projects, nil
}

func (m *MemoryStorage) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	counts := make(map[types.Status]int)
	for _, r := range m.byPath {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *MemoryStorage) ProjectStats(ctx context.Context, project string) (*types.ProjectStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	stats := types.NewProjectStats(project)
	for _, r := range m.byPath {
		if r.Project == project {
			stats.Add(r)
		}
	}
	return stats, nil
}

func (m *MemoryStorage) RecordBatch(ctx context.Context, batch *types.BatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stored := *batch
	stored.Errors = append([]string(nil), batch.Errors...)
	m.batches = append(m.batches, &stored)
	return nil
}

func (m *MemoryStorage) ListBatches(ctx context.Context, limit int) ([]*types.BatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	batches := make([]*types.BatchRecord, 0, len(m.batches))
	for i := len(m.batches) - 1; i >= 0; i-- {
		b := *m.batches[i]
		batches = append(batches, &b)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].StartedAt.After(batches[j].StartedAt)
	})
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

func (m *MemoryStorage) SetCurrentFlags(ctx context.Context, flags map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	// Unknown paths are ignored, matching an UPDATE that matches no rows
	for path, current := range flags {
		if r, ok := m.byPath[path]; ok {
			r.IsCurrent = current
		}
	}
	return nil
}
