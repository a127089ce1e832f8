package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/aecwatch/internal/extractor"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, config *Config) (*Pipeline, storage.Storage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	if config == nil {
		config = &Config{}
	}
	config.Logger = quietLogger()
	if config.Workers == 0 {
		config.Workers = 4
	}
	return NewPipeline(store, config), store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestProcessBatch_NewFile(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.pdf", "r1")

	result := p.ProcessBatch(ctx, []string{path})
	assert.Equal(t, []string{path}, result.Completed)
	assert.True(t, result.OK())
	assert.NotEqual(t, [16]byte{}, [16]byte(result.ID))

	rec, err := store.GetByPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Equal(t, "PROJ1", rec.Project)
	assert.Equal(t, "R1", rec.Revision)
	assert.True(t, rec.IsStandard)
	assert.True(t, rec.IsCurrent)
	assert.Len(t, rec.Digest, 64)
	assert.Equal(t, int64(2), rec.SizeBytes)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.Error)
}

func TestProcessBatch_Idempotent(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.pdf", "r1")

	var hashes atomic.Int32
	p.hash = func(ctx context.Context, path string) (types.Fingerprint, error) {
		hashes.Add(1)
		return Fingerprint(ctx, path)
	}
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	p.now = func() time.Time { return first }
	p.ProcessBatch(ctx, []string{path})
	before, err := store.GetByPath(ctx, path)
	require.NoError(t, err)

	p.now = func() time.Time { return second }
	result := p.ProcessBatch(ctx, []string{path, path})
	assert.Equal(t, []string{path}, result.Skipped)
	assert.Empty(t, result.Completed)
	assert.Equal(t, int32(2), hashes.Load(), "one hash per pass, duplicates collapsed")

	after, err := store.GetByPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, before.Digest, after.Digest)
	assert.True(t, second.Equal(after.LastProcessedAt))

	group, err := store.GetByGroup(ctx, after.Group())
	require.NoError(t, err)
	assert.Len(t, group, 1)
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{
		"PROJ1_CD_A_DWG_101_R1_010124.pdf",
		"PROJ1_CD_A_DWG_102_R1_010124.pdf",
		"PROJ1_CD_S_DWG_201_R1_010124.pdf",
		"PROJ1_CD_M_DWG_301_R1_010124.pdf",
		"PROJ1_CD_E_DWG_401_R1_010124.pdf",
	} {
		paths = append(paths, writeFile(t, dir, name, name))
	}
	locked := paths[2]

	p.hash = func(ctx context.Context, path string) (types.Fingerprint, error) {
		if path == locked {
			return types.Fingerprint{}, &types.IOError{Path: path, Op: "open", Err: errors.New("sharing violation")}
		}
		return Fingerprint(ctx, path)
	}

	result := p.ProcessBatch(ctx, paths)
	assert.Len(t, result.Completed, 4)
	assert.Equal(t, []string{locked}, result.Failed)
	assert.Equal(t, []string{locked}, result.Retry)
	assert.True(t, result.Partial())
	assert.False(t, result.OK())

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[types.StatusCompleted])
	assert.Equal(t, 1, counts[types.StatusFailed])

	rec, err := store.GetByPath(ctx, locked)
	require.NoError(t, err)
	require.NotNil(t, rec.Error)
	assert.Contains(t, *rec.Error, "sharing violation")
	assert.Equal(t, "S", rec.DisciplineCode, "failed records are still classified by name")
	assert.False(t, rec.IsCurrent)

	// The lock clears and the next batch completes the file
	p.hash = Fingerprint
	result = p.ProcessBatch(ctx, []string{locked})
	assert.Equal(t, []string{locked}, result.Completed)

	rec, err = store.GetByPath(ctx, locked)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Nil(t, rec.Error)
	assert.True(t, rec.IsCurrent)
}

func TestRecordBatch(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	dir := t.TempDir()
	good := writeFile(t, dir, "PROJ1_CD_A_DWG_101_R1_010124.pdf", "ok")
	locked := writeFile(t, dir, "PROJ1_CD_A_DWG_102_R1_010124.pdf", "locked")

	p.hash = func(ctx context.Context, path string) (types.Fingerprint, error) {
		if path == locked {
			return types.Fingerprint{}, &types.IOError{Path: path, Op: "open", Err: errors.New("sharing violation")}
		}
		return Fingerprint(ctx, path)
	}
	result := p.ProcessBatch(ctx, []string{good, locked})
	require.NoError(t, p.RecordBatch(ctx, result, types.TriggerScan, dir))

	batches, err := store.ListBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, result.ID.String(), b.ID)
	assert.Equal(t, types.TriggerScan, b.Trigger)
	assert.Equal(t, dir, b.Root)
	assert.Equal(t, 2, b.Files)
	assert.Equal(t, 1, b.Completed)
	assert.Equal(t, 1, b.Failed)
	assert.Equal(t, 1, b.Retried)
	assert.False(t, b.StartedAt.IsZero())
	require.Len(t, b.Errors, 1)
	assert.Contains(t, b.Errors[0], "sharing violation")
}

func TestProcessBatch_RevisionSupersededAcrossBatches(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	r1 := writeFile(t, dir, "PROJ1_CD_A_DWG_101_R1_010124.pdf", "first issue")
	p.ProcessBatch(ctx, []string{r1})

	r2 := writeFile(t, dir, "PROJ1_CD_A_DWG_101_R2_020124.pdf", "second issue")
	result := p.ProcessBatch(ctx, []string{r2})
	require.Equal(t, []string{r2}, result.Completed)

	rec1, err := store.GetByPath(ctx, r1)
	require.NoError(t, err)
	rec2, err := store.GetByPath(ctx, r2)
	require.NoError(t, err)
	assert.False(t, rec1.IsCurrent)
	assert.True(t, rec2.IsCurrent)
}

func TestProcessBatch_TransientErrorKeepsCurrentRevision(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	r1 := writeFile(t, dir, "PROJ1_CD_A_DWG_101_R1_010124.pdf", "first issue")
	r2 := writeFile(t, dir, "PROJ1_CD_A_DWG_101_R2_020124.pdf", "second issue")
	require.Len(t, p.ProcessBatch(ctx, []string{r1, r2}).Completed, 2)

	p.hash = func(ctx context.Context, path string) (types.Fingerprint, error) {
		if path == r2 {
			return types.Fingerprint{}, &types.IOError{Path: path, Op: "open", Err: errors.New("sharing violation")}
		}
		return Fingerprint(ctx, path)
	}
	result := p.ProcessBatch(ctx, []string{r2})
	assert.Equal(t, []string{r2}, result.Retry)

	rec1, err := store.GetByPath(ctx, r1)
	require.NoError(t, err)
	rec2, err := store.GetByPath(ctx, r2)
	require.NoError(t, err)
	assert.False(t, rec1.IsCurrent)
	assert.True(t, rec2.IsCurrent)
	assert.Equal(t, types.StatusCompleted, rec2.Status)
	require.NotNil(t, rec2.Error)
	assert.Contains(t, *rec2.Error, "sharing violation")

	// Once readable again the same content clears the error
	p.hash = Fingerprint
	result = p.ProcessBatch(ctx, []string{r2})
	assert.Equal(t, []string{r2}, result.Completed)

	rec2, err = store.GetByPath(ctx, r2)
	require.NoError(t, err)
	assert.Nil(t, rec2.Error)
	assert.True(t, rec2.IsCurrent)
}

func TestProcessBatch_SameGroupInOneBatch(t *testing.T) {
	p, store := newTestPipeline(t, &Config{Workers: 8})
	ctx := context.Background()
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{
		"PROJ1_CD_A_DWG_101_C03_010124.pdf",
		"PROJ1_CD_A_DWG_101_R1_010124.pdf",
		"PROJ1_CD_A_DWG_101_R2_020124.pdf",
		"PROJ1_CD_A_DWG_101_IFC_030124.pdf",
	} {
		paths = append(paths, writeFile(t, dir, name, name))
	}
	p.ProcessBatch(ctx, paths)

	current, err := store.GetAllCurrentRevisions(ctx, "PROJ1")
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "IFC", current[0].Revision)
}

func TestProcessBatch_ContentChangeStartsNewCycle(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.pdf", "v1")

	p.ProcessBatch(ctx, []string{path})
	before, err := store.GetByPath(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	result := p.ProcessBatch(ctx, []string{path})
	assert.Equal(t, []string{path}, result.Completed)

	after, err := store.GetByPath(ctx, path)
	require.NoError(t, err)
	assert.NotEqual(t, before.Digest, after.Digest)
	assert.Equal(t, types.StatusCompleted, after.Status)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt), "creation time survives reprocessing")
}

func TestProcessBatch_VanishedPath(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gone.pdf")

	result := p.ProcessBatch(ctx, []string{path})
	assert.Equal(t, []string{path}, result.Skipped)

	_, err := store.GetByPath(ctx, path)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessBatch_FallbackClassificationIsRecorded(t *testing.T) {
	p, store := newTestPipeline(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "Structural/foundation.pdf", "x")

	p.ProcessBatch(ctx, []string{path})

	rec, err := store.GetByPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "S", rec.DisciplineCode)
	assert.False(t, rec.IsStandard)
	assert.LessOrEqual(t, rec.Confidence, types.ConfidenceHeuristicMax)
	assert.Equal(t, types.FormatHeuristic, rec.NamingFormat)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.False(t, rec.IsCurrent, "records without a sheet are never grouped")
}

func TestProcessBatch_Extraction(t *testing.T) {
	failing := extractor.Func(func(context.Context, string, types.Classification) ([]byte, error) {
		return nil, errors.New("unsupported version")
	})

	t.Run("payload stored", func(t *testing.T) {
		p, store := newTestPipeline(t, &Config{Extractor: extractor.NewDefaultRegistry()})
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.pdf", "%PDF-1.4\n")

		p.ProcessBatch(ctx, []string{path})
		rec, err := store.GetByPath(ctx, path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"pdf_version":"1.4","linearized":false}`, string(rec.Payload))
		assert.Nil(t, rec.PayloadWarning)
	})

	t.Run("failure is a warning", func(t *testing.T) {
		p, store := newTestPipeline(t, &Config{Extractor: failing})
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.dwg", "x")

		result := p.ProcessBatch(ctx, []string{path})
		assert.Equal(t, []string{path}, result.Completed)

		rec, err := store.GetByPath(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, rec.Status)
		assert.Nil(t, rec.Payload)
		require.NotNil(t, rec.PayloadWarning)
		assert.Contains(t, *rec.PayloadWarning, "unsupported version")
	})

	t.Run("mandatory failure fails the record", func(t *testing.T) {
		p, store := newTestPipeline(t, &Config{Extractor: failing, ExtractionMandatory: true})
		ctx := context.Background()
		path := writeFile(t, t.TempDir(), "PROJ1_CD_A_DWG_101_R1_010124.dwg", "x")

		result := p.ProcessBatch(ctx, []string{path})
		assert.Equal(t, []string{path}, result.Failed)
		assert.Empty(t, result.Retry)

		rec, err := store.GetByPath(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, types.StatusFailed, rec.Status)
		assert.False(t, rec.IsCurrent)
	})
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.pdf", "a"),
		writeFile(t, dir, "b.pdf", "b"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.ProcessBatch(ctx, paths)
	assert.Empty(t, result.Completed)
	assert.ElementsMatch(t, paths, result.Retry)
}
