package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultDebounce is the quiet period that ends an accumulation window
	DefaultDebounce = 5 * time.Second

	// DefaultMaxRetries caps how often a transiently failing path is re-queued
	DefaultMaxRetries = 3
)

// State is the batcher's lifecycle state
type State int32

const (
	StateIdle State = iota
	StateWatching
	StateAccumulating
	StateDispatching
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateAccumulating:
		return "accumulating"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config configures a Batcher
type Config struct {
	Root       string
	Source     Source
	Filter     *Filter // nil uses DefaultExtensions and DefaultExcludePatterns
	Handler    BatchHandler
	Debounce   time.Duration // default 5s
	MaxRetries int           // default 3
	Logger     *slog.Logger
}

// Batcher coalesces change events into batches. A single goroutine owns the
// pending set and the debounce timer; batches run on a separate goroutine,
// one at a time, so event intake never blocks on processing.
type Batcher struct {
	root       string
	source     Source
	filter     *Filter
	handler    BatchHandler
	debounce   time.Duration
	maxRetries int
	logger     *slog.Logger

	state    atomic.Int32
	started  atomic.Bool
	running  atomic.Bool // run goroutine launched; done will close
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	batchCtx     context.Context
	abort        context.CancelFunc
	cancelSource context.CancelFunc
}

// New validates cfg and returns an idle batcher
func New(cfg Config) (*Batcher, error) {
	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("watcher source is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", cfg.Root, err)
	}

	filter := cfg.Filter
	if filter == nil {
		filter, err = NewFilter(DefaultExtensions, DefaultExcludePatterns)
		if err != nil {
			return nil, err
		}
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Batcher{
		root:       root,
		source:     cfg.Source,
		filter:     filter.WithRoot(root),
		handler:    cfg.Handler,
		debounce:   debounce,
		maxRetries: maxRetries,
		logger:     logger,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// State returns the current state
func (b *Batcher) State() State {
	return State(b.state.Load())
}

func (b *Batcher) setState(s State) {
	b.state.Store(int32(s))
}

// Done is closed once the batcher reaches Stopped
func (b *Batcher) Done() <-chan struct{} {
	return b.done
}

// Start subscribes to the source, seeds the pending set with every accepted
// file already under root, and begins watching. Errors are fatal: the root is
// missing or not a directory, or the source could not subscribe. Cancelling
// ctx has the same effect as Stop.
func (b *Batcher) Start(ctx context.Context) (err error) {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer func() {
		if err != nil {
			b.started.Store(false)
		}
	}()
	if err := validateRoot(b.root); err != nil {
		return fmt.Errorf("failed to start watcher on %s: %w", b.root, err)
	}

	srcCtx, cancelSource := context.WithCancel(ctx)
	events, err := b.source.Subscribe(srcCtx, b.root)
	if err != nil {
		cancelSource()
		return fmt.Errorf("failed to subscribe to %s: %w", b.root, err)
	}

	pending, err := b.seed(ctx)
	if err != nil {
		cancelSource()
		return fmt.Errorf("failed to seed from %s: %w", b.root, err)
	}

	b.cancelSource = cancelSource
	// Batches outlive ctx so Stop can drain; abort is the hard cancel
	b.batchCtx, b.abort = context.WithCancel(context.WithoutCancel(ctx))

	if len(pending) > 0 {
		b.setState(StateAccumulating)
	} else {
		b.setState(StateWatching)
	}
	b.logger.Info("watching", "root", b.root, "seeded", len(pending), "debounce", b.debounce)

	b.running.Store(true)
	go b.run(ctx, events, pending)
	return nil
}

// Stop lets the in-flight batch finish, flushes accumulated events as a final
// batch, and waits for Stopped. If ctx expires first the batch context is
// cancelled and ctx's error is returned once the loop exits. Stopping a
// batcher that never started, or whose Start failed, returns at once.
func (b *Batcher) Stop(ctx context.Context) error {
	if !b.running.Load() {
		b.setState(StateStopped)
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopCh) })

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.abort()
		<-b.done
		return ctx.Err()
	}
}

// seed walks root once and returns every accepted file
func (b *Batcher) seed(ctx context.Context) (map[string]struct{}, error) {
	paths, err := Walk(ctx, b.root, b.filter)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		pending[p] = struct{}{}
	}
	return pending, nil
}

type dispatchResult struct {
	batch Batch
	retry []string
}

func (b *Batcher) run(ctx context.Context, events <-chan ChangeEvent, pending map[string]struct{}) {
	defer close(b.done)
	defer b.abort()
	defer b.cancelSource()

	var (
		seq         int
		inFlight    bool
		flushDue    bool // debounce elapsed while a batch was in flight
		stopping    bool
		finalSent   bool
		timerActive = len(pending) > 0
		retries     = make(map[string]int)
		results     = make(chan dispatchResult, 1)
		stopCh      = b.stopCh
		ctxDone     = ctx.Done()
	)

	timer := time.NewTimer(b.debounce)
	if !timerActive {
		timer.Stop()
	}
	defer timer.Stop()

	dispatch := func(final bool) {
		seq++
		batch := Batch{Seq: seq, Paths: sortedPaths(pending), Final: final}
		pending = make(map[string]struct{})
		inFlight = true
		b.setState(StateDispatching)
		b.logger.Debug("dispatching batch", "seq", batch.Seq, "paths", len(batch.Paths), "final", final)

		go func() {
			retry := b.handler(b.batchCtx, batch)
			results <- dispatchResult{batch: batch, retry: retry}
		}()
	}

	accept := func(ev ChangeEvent) bool {
		if ev.Op == OpRemove || !b.filter.Accept(ev.Path) {
			return false
		}
		pending[ev.Path] = struct{}{}
		return true
	}

	// Events already delivered belong in the final batch
	beginStop := func() {
		stopping = true
		stopCh, ctxDone = nil, nil
		for drained := false; !drained; {
			select {
			case ev, ok := <-events:
				if !ok {
					drained = true
				} else {
					accept(ev)
				}
			default:
				drained = true
			}
		}
		events = nil
		b.cancelSource()
		timer.Stop()
		timerActive = false
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				b.logger.Warn("event source closed", "root", b.root)
				events = nil
				continue
			}
			if !accept(ev) {
				continue
			}
			timer.Reset(b.debounce)
			timerActive = true
			if !inFlight {
				b.setState(StateAccumulating)
			}

		case <-timer.C:
			timerActive = false
			if len(pending) == 0 {
				continue
			}
			if inFlight {
				flushDue = true
				continue
			}
			dispatch(false)

		case res := <-results:
			inFlight = false
			if stopping {
				if len(res.retry) > 0 {
					b.logger.Warn("dropping retries at shutdown", "paths", len(res.retry))
				}
				if len(pending) > 0 && !finalSent {
					finalSent = true
					dispatch(true)
					continue
				}
				b.setState(StateStopped)
				b.logger.Info("watcher stopped", "root", b.root, "batches", seq)
				return
			}

			b.requeue(res, pending, retries)
			switch {
			case flushDue && len(pending) > 0:
				flushDue = false
				dispatch(false)
			case len(pending) > 0:
				flushDue = false
				b.setState(StateAccumulating)
				if !timerActive {
					timer.Reset(b.debounce)
					timerActive = true
				}
			default:
				flushDue = false
				b.setState(StateWatching)
			}

		case <-stopCh:
			beginStop()
		case <-ctxDone:
			beginStop()
		}

		if stopping && !inFlight {
			if len(pending) > 0 && !finalSent {
				finalSent = true
				dispatch(true)
				continue
			}
			b.setState(StateStopped)
			b.logger.Info("watcher stopped", "root", b.root, "batches", seq)
			return
		}
	}
}

// requeue adds retryable paths back to pending until they exhaust their
// retries. Paths that were not returned for retry reset their count.
func (b *Batcher) requeue(res dispatchResult, pending map[string]struct{}, retries map[string]int) {
	retry := make(map[string]struct{}, len(res.retry))
	for _, path := range res.retry {
		retry[path] = struct{}{}
	}
	for _, path := range res.batch.Paths {
		if _, ok := retry[path]; !ok {
			delete(retries, path)
		}
	}
	for path := range retry {
		retries[path]++
		if retries[path] > b.maxRetries {
			b.logger.Warn("giving up on path", "path", path, "attempts", retries[path])
			delete(retries, path)
			continue
		}
		pending[path] = struct{}{}
	}
}

func sortedPaths(set map[string]struct{}) []string {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
