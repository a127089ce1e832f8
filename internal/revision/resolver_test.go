package revision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/pkg/types"
)

var group = types.GroupKey{Project: "PROJ1", Discipline: "A", Sheet: "101"}

func record(path, revision string, mod time.Time) *types.FileRecord {
	rev, _ := types.ParseRevision(revision)
	return &types.FileRecord{
		Path:           path,
		Digest:         "d-" + path,
		ModTime:        mod,
		Project:        group.Project,
		DisciplineCode: group.Discipline,
		Sheet:          group.Sheet,
		Revision:       rev.Token,
		RevisionKind:   rev.Kind,
		Status:         types.StatusCompleted,
	}
}

func seed(t *testing.T, store storage.Storage, records ...*types.FileRecord) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, store.UpsertRecord(context.Background(), r))
	}
}

func currentPaths(t *testing.T, store storage.Storage, key types.GroupKey) []string {
	t.Helper()
	records, err := store.GetByGroup(context.Background(), key)
	require.NoError(t, err)
	var paths []string
	for _, r := range records {
		if r.IsCurrent {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func TestResolve_OrderingLaw(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store,
		record("/p/r1.pdf", "R1", base),
		record("/p/r2.pdf", "R2", base),
		record("/p/ifc.pdf", "IFC", base),
		record("/p/c03.pdf", "C03", base.Add(time.Hour)),
	)

	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "/p/ifc.pdf", outcome.Current)
	assert.Equal(t, []string{"/p/ifc.pdf"}, currentPaths(t, store, group))

	// Reclassifying the IFC file out of the group leaves R2 on top
	moved := record("/p/ifc.pdf", "IFC", base)
	moved.Sheet = "102"
	seed(t, store, moved)

	outcome, err = resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "/p/r2.pdf", outcome.Current)
	assert.Equal(t, []string{"/p/r2.pdf"}, currentPaths(t, store, group))
}

func TestResolve_CheckPrintNeverBeatsClean(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store,
		record("/p/c99.pdf", "C99", base.Add(24*time.Hour)),
		record("/p/r0.pdf", "R0", base),
	)

	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "/p/r0.pdf", outcome.Current)
}

func TestResolve_TieBrokenByModTime(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	resolver := NewResolver(store, logger)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store,
		record("/p/old/r1.pdf", "R1", base),
		record("/p/new/r1.pdf", "R1", base.Add(time.Minute)),
	)

	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.True(t, outcome.Conflict)
	assert.Equal(t, "/p/new/r1.pdf", outcome.Current)
	assert.Contains(t, buf.String(), types.ErrGroupResolutionConflict.Error())
}

func TestResolve_TieOnModTimeFallsBackToPath(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store,
		record("/p/a.pdf", "R1", base),
		record("/p/b.pdf", "R1", base),
	)

	for i := 0; i < 3; i++ {
		outcome, err := resolver.Resolve(ctx, group)
		require.NoError(t, err)
		assert.Equal(t, "/p/b.pdf", outcome.Current)
	}
}

func TestResolve_OnlyCompletedRecordsAreEligible(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	failed := record("/p/r2.pdf", "R2", base)
	failed.Status = types.StatusFailed
	seed(t, store, record("/p/r1.pdf", "R1", base), failed)

	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "/p/r1.pdf", outcome.Current)
}

func TestResolve_WritesOnlyChangedFlags(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store, record("/p/r1.pdf", "R1", base))
	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/r1.pdf"}, outcome.Changed)

	outcome, err = resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, outcome.Changed)

	seed(t, store, record("/p/r2.pdf", "R2", base))
	outcome, err = resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/p/r1.pdf", "/p/r2.pdf"}, outcome.Changed)
}

func TestResolve_UnresolvableKey(t *testing.T) {
	resolver := NewResolver(storage.NewMemoryStorage(), nil)
	outcome, err := resolver.Resolve(context.Background(), types.GroupKey{Project: "PROJ1"})
	require.NoError(t, err)
	assert.Empty(t, outcome.Current)
	assert.Empty(t, outcome.Changed)
}

func TestResolve_EmptyGroupHasNoCurrent(t *testing.T) {
	resolver := NewResolver(storage.NewMemoryStorage(), nil)
	outcome, err := resolver.Resolve(context.Background(), group)
	require.NoError(t, err)
	assert.Empty(t, outcome.Current)
}

func TestResolve_ConcurrentUniqueness(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	other := types.GroupKey{Project: "PROJ1", Discipline: "S", Sheet: "201"}

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		for _, key := range []types.GroupKey{group, other} {
			wg.Add(1)
			go func(i int, key types.GroupKey) {
				defer wg.Done()
				r := record(fmt.Sprintf("/p/%s/r%d.pdf", key.Discipline, i), fmt.Sprintf("R%d", i), base)
				r.DisciplineCode = key.Discipline
				r.Sheet = key.Sheet
				assert.NoError(t, store.UpsertRecord(ctx, r))
				_, err := resolver.Resolve(ctx, key)
				assert.NoError(t, err)
			}(i, key)
		}
	}
	wg.Wait()

	assert.Equal(t, []string{"/p/A/r10.pdf"}, currentPaths(t, store, group))
	assert.Equal(t, []string{"/p/S/r10.pdf"}, currentPaths(t, store, other))
	assert.Zero(t, resolver.locks.Len())
}

func TestResolve_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	resolver := NewResolver(store, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, store, record("/p/r1.pdf", "R1", base), record("/p/r2.pdf", "R2", base))
	outcome, err := resolver.Resolve(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, "/p/r2.pdf", outcome.Current)
	assert.Equal(t, []string{"/p/r2.pdf"}, currentPaths(t, store, group))
}
