package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/aecwatch/internal/extractor"
	"github.com/dshills/aecwatch/internal/naming"
	"github.com/dshills/aecwatch/internal/revision"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/pkg/types"
)

// DefaultFileTimeout bounds the work done for one file
const DefaultFileTimeout = 2 * time.Minute

// Config contains configuration for the pipeline
type Config struct {
	Workers             int                 // Number of concurrent workers (default: runtime.NumCPU())
	FileTimeout         time.Duration       // Per-file deadline (default: 2m)
	ExtractionMandatory bool                // Fail the record when extraction fails
	Extractor           extractor.Extractor // Optional content extractor
	Logger              *slog.Logger        // Defaults to slog.Default()
}

// GroupError is a resolution failure for one group
type GroupError struct {
	Group types.GroupKey
	Err   error
}

// BatchResult summarizes one ProcessBatch call
type BatchResult struct {
	ID          uuid.UUID
	Completed   []string // reached completed
	Skipped     []string // unchanged or vanished
	Failed      []string // stored with status failed
	Retry       []string // transient failures and unreached paths to re-queue
	GroupErrors []GroupError
	Errors      []string // "path: error" per failure
	StartedAt   time.Time
	Duration    time.Duration
}

// Summary converts the result into the stored batch history row
func (r *BatchResult) Summary(trigger types.BatchTrigger, root string) *types.BatchRecord {
	files := len(r.Completed) + len(r.Skipped) + len(r.Failed)
	// Unreached paths are in Retry but not Failed
	files += len(lo.Without(r.Retry, r.Failed...))
	return &types.BatchRecord{
		ID:          r.ID.String(),
		Trigger:     trigger,
		Root:        root,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration,
		Files:       files,
		Completed:   len(r.Completed),
		Skipped:     len(r.Skipped),
		Failed:      len(r.Failed),
		Retried:     len(r.Retry),
		GroupErrors: len(r.GroupErrors),
		Errors:      r.Errors,
	}
}

// Partial reports a batch where some files succeeded and some did not
func (r *BatchResult) Partial() bool {
	succeeded := len(r.Completed) + len(r.Skipped)
	return succeeded > 0 && (len(r.Failed) > 0 || len(r.GroupErrors) > 0)
}

// OK reports a batch with no failures of any kind
func (r *BatchResult) OK() bool {
	return len(r.Failed) == 0 && len(r.GroupErrors) == 0 && len(r.Errors) == 0
}

// Pipeline runs each file through hash -> detect -> classify -> extract ->
// upsert -> resolve. One file's failure never aborts the batch.
type Pipeline struct {
	store      storage.Storage
	detector   *ChangeDetector
	classifier *naming.Classifier
	resolver   *revision.Resolver
	extractor  extractor.Extractor
	logger     *slog.Logger

	workers             int
	fileTimeout         time.Duration
	extractionMandatory bool

	hash func(ctx context.Context, path string) (types.Fingerprint, error)
	now  func() time.Time
}

// NewPipeline creates a pipeline over store. A nil config uses defaults.
func NewPipeline(store storage.Storage, config *Config) *Pipeline {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	timeout := config.FileTimeout
	if timeout <= 0 {
		timeout = DefaultFileTimeout
	}

	return &Pipeline{
		store:               store,
		detector:            NewChangeDetector(store),
		classifier:          naming.New(),
		resolver:            revision.NewResolver(store, logger),
		extractor:           config.Extractor,
		logger:              logger,
		workers:             workers,
		fileTimeout:         timeout,
		extractionMandatory: config.ExtractionMandatory,
		hash:                Fingerprint,
		now:                 time.Now,
	}
}

// Resolver exposes the pipeline's resolver so callers share its group locks
func (p *Pipeline) Resolver() *revision.Resolver {
	return p.resolver
}

// RecordBatch stores result in the batch history. A write failure is logged
// and returned; the batch's file records are already persisted.
func (p *Pipeline) RecordBatch(ctx context.Context, result *BatchResult, trigger types.BatchTrigger, root string) error {
	if err := p.store.RecordBatch(ctx, result.Summary(trigger, root)); err != nil {
		p.logger.Warn("failed to record batch", "batch", result.ID.String(), "error", err)
		return err
	}
	return nil
}

type fileOutcome int

const (
	outcomeCompleted fileOutcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeRetry
)

type fileResult struct {
	path        string
	outcome     fileOutcome
	err         error
	groupErrors []GroupError
}

// ProcessBatch processes paths concurrently on a bounded worker pool.
// Duplicate paths are processed once. Paths not reached because ctx was
// cancelled are returned in Retry.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) *BatchResult {
	start := time.Now()
	result := &BatchResult{ID: uuid.New(), StartedAt: start}

	unique := lo.Uniq(lo.FilterMap(paths, func(path string, _ int) (string, bool) {
		abs, err := filepath.Abs(path)
		return abs, err == nil && path != ""
	}))

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, p.workers)
	var mu sync.Mutex // Protects result
	var g errgroup.Group

	record := func(fr fileResult) {
		mu.Lock()
		defer mu.Unlock()
		switch fr.outcome {
		case outcomeCompleted:
			result.Completed = append(result.Completed, fr.path)
		case outcomeSkipped:
			result.Skipped = append(result.Skipped, fr.path)
		case outcomeRetry:
			result.Retry = append(result.Retry, fr.path)
			result.Failed = append(result.Failed, fr.path)
		case outcomeFailed:
			result.Failed = append(result.Failed, fr.path)
		}
		if fr.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fr.path, fr.err))
		}
		result.GroupErrors = append(result.GroupErrors, fr.groupErrors...)
	}

	for _, path := range unique {
		g.Go(func() error {
			unreached := func() error {
				mu.Lock()
				result.Retry = append(result.Retry, path)
				mu.Unlock()
				return nil
			}
			if ctx.Err() != nil {
				return unreached()
			}
			select {
			case <-ctx.Done():
				return unreached()
			case semaphore <- struct{}{}:
				// Acquire semaphore
			}
			defer func() { <-semaphore }()

			record(p.processFile(ctx, path))
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	p.logger.Info("batch processed",
		"batch", result.ID.String(),
		"files", len(unique),
		"completed", len(result.Completed),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
		"retry", len(result.Retry),
		"group_errors", len(result.GroupErrors),
		"duration", result.Duration)
	return result
}

// processFile runs one path through the pipeline under the per-file timeout
func (p *Pipeline) processFile(parent context.Context, path string) fileResult {
	ctx, cancel := context.WithTimeout(parent, p.fileTimeout)
	defer cancel()

	res := fileResult{path: path}
	now := p.now()

	existing, err := p.store.GetByPath(ctx, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		res.outcome, res.err = outcomeFailed, fmt.Errorf("failed to load record: %w", err)
		return res
	}
	if errors.Is(err, storage.ErrNotFound) {
		existing = nil
	}

	fp, err := p.hash(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Deletion is the caller's policy; the record, if any, is left alone
			p.logger.Debug("path vanished before hashing", "path", path)
			res.outcome = outcomeSkipped
			return res
		}
		return p.fail(ctx, existing, path, now, err, res)
	}

	changed, err := p.detector.HasChanged(ctx, path, fp.Digest)
	if err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}
	if !changed && existing != nil && existing.Status == types.StatusCompleted && existing.Error == nil {
		if err := p.store.Touch(ctx, path, now); err != nil {
			res.outcome, res.err = outcomeFailed, &types.StoreWriteError{Path: path, Err: err}
			return res
		}
		res.outcome = outcomeSkipped
		return res
	}

	var rec *types.FileRecord
	var oldGroup types.GroupKey
	storedStatus := types.Status("")
	if existing != nil {
		rec = existing.Clone()
		oldGroup = existing.Group()
		// A non-terminal stored status is an interrupted pass and starts over
		if existing.Status.Terminal() {
			storedStatus = existing.Status
		}
	} else {
		rec = &types.FileRecord{Path: path, CreatedAt: fp.BirthTime}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
	}

	life := types.NewLifecycle(storedStatus)
	rec.Digest = fp.Digest
	rec.SizeBytes = fp.Size
	rec.ModTime = fp.ModTime
	if err := life.Advance(types.StatusHashed); err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}

	classification := p.classifier.ClassifyPath(path)
	rec.ApplyClassification(classification)
	if err := life.Advance(types.StatusClassified); err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}

	rec.SetError("")
	if extractErr := p.extract(ctx, rec, classification); extractErr != nil {
		life.Fail()
		rec.SetError(extractErr.Error())
		res.err = extractErr
	} else if err := life.Advance(types.StatusCompleted); err != nil {
		res.outcome, res.err = outcomeFailed, err
		return res
	}

	rec.Status = life.Current()
	rec.LastProcessedAt = now
	if err := p.store.UpsertRecord(ctx, rec); err != nil {
		res.outcome, res.err = outcomeFailed, &types.StoreWriteError{Path: path, Err: err}
		return res
	}

	res.outcome = outcomeCompleted
	if rec.Status == types.StatusFailed {
		res.outcome = outcomeFailed
	}
	res.groupErrors = p.resolveGroups(ctx, rec.Group(), oldGroup)
	return res
}

// extract fills the payload. It returns an error only when extraction is
// mandatory; otherwise a failure becomes a payload warning.
func (p *Pipeline) extract(ctx context.Context, rec *types.FileRecord, c types.Classification) error {
	rec.Payload = nil
	rec.PayloadWarning = nil
	if p.extractor == nil {
		return nil
	}

	payload, err := p.extractor.Extract(ctx, rec.Path, c)
	switch {
	case err == nil:
		rec.Payload = payload
		return nil
	case errors.Is(err, extractor.ErrNoExtractor):
		return nil
	case p.extractionMandatory:
		return err
	default:
		warning := err.Error()
		rec.PayloadWarning = &warning
		p.logger.Warn("extraction failed", "path", rec.Path, "error", err)
		return nil
	}
}

// fail stores a failed record for a hashing error. Transient errors are
// reported for retry in the next batch.
func (p *Pipeline) fail(ctx context.Context, existing *types.FileRecord, path string, now time.Time, cause error, res fileResult) fileResult {
	res.err = cause
	res.outcome = outcomeFailed
	if types.IsTransient(cause) || errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		res.outcome = outcomeRetry
	}

	// A completed record that is momentarily unreadable keeps its status and
	// currency; only the error is noted until the retry succeeds.
	if res.outcome == outcomeRetry && existing != nil && existing.Status == types.StatusCompleted {
		rec := existing.Clone()
		rec.SetError(cause.Error())
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fileTimeout)
		defer cancel()
		if err := p.store.UpsertRecord(writeCtx, rec); err != nil {
			res.err = errors.Join(cause, &types.StoreWriteError{Path: path, Err: err})
			return res
		}
		p.logger.Warn("completed file unreadable, keeping stored state", "path", path, "error", cause)
		return res
	}

	var rec *types.FileRecord
	var life *types.Lifecycle
	if existing != nil {
		rec = existing.Clone()
		life = types.NewLifecycle(existing.Status)
	} else {
		// An unreadable file still yields a queryable record, classified by name
		rec = &types.FileRecord{Path: path, CreatedAt: now}
		rec.ApplyClassification(p.classifier.ClassifyPath(path))
		life = types.NewLifecycle("")
	}
	life.Fail()
	rec.Status = life.Current()
	rec.SetError(cause.Error())
	rec.LastProcessedAt = now

	// The per-file deadline may be what failed; the write gets its own
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fileTimeout)
	defer cancel()
	if err := p.store.UpsertRecord(writeCtx, rec); err != nil {
		res.err = errors.Join(cause, &types.StoreWriteError{Path: path, Err: err})
		return res
	}

	var oldGroup types.GroupKey
	if existing != nil {
		oldGroup = existing.Group()
	}
	res.groupErrors = p.resolveGroups(writeCtx, rec.Group(), oldGroup)
	p.logger.Warn("file failed", "path", path, "error", cause, "retry", res.outcome == outcomeRetry)
	return res
}

// resolveGroups re-evaluates the record's group, and the group it left when
// reclassification moved it.
func (p *Pipeline) resolveGroups(ctx context.Context, current, previous types.GroupKey) []GroupError {
	keys := []types.GroupKey{current}
	if previous != current {
		keys = append(keys, previous)
	}

	var errs []GroupError
	for _, key := range keys {
		if !key.Resolvable() {
			continue
		}
		if _, err := p.resolver.Resolve(ctx, key); err != nil {
			p.logger.Error("group resolution failed", "group", key.String(), "error", err)
			errs = append(errs, GroupError{Group: key, Err: err})
		}
	}
	return errs
}
