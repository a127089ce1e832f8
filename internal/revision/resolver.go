package revision

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/pkg/types"
)

// Outcome describes one resolution of a group
type Outcome struct {
	Group    types.GroupKey
	Current  string   // path of the current record, "" when no record is eligible
	Changed  []string // paths whose current flag was flipped
	Conflict bool     // the top two candidates tied on revision
}

// Resolver recomputes the current revision of a group. Resolutions of the
// same group are serialized; different groups resolve concurrently.
type Resolver struct {
	store  storage.Storage
	locks  *KeyedMutex[types.GroupKey]
	logger *slog.Logger
}

// NewResolver creates a resolver over store. A nil logger uses slog.Default().
func NewResolver(store storage.Storage, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		locks:  NewKeyedMutex[types.GroupKey](),
		logger: logger,
	}
}

// Resolve marks the highest ranked completed record in key's group current and
// clears the flag on every other record. Only flags that change are written.
// Keys without a sheet are not groups and resolve to an empty outcome.
func (r *Resolver) Resolve(ctx context.Context, key types.GroupKey) (*Outcome, error) {
	outcome := &Outcome{Group: key}
	if !key.Resolvable() {
		return outcome, nil
	}

	unlock := r.locks.Lock(key)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := r.store.GetByGroup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", key, err)
	}

	candidates := make([]*types.FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.Status == types.StatusCompleted {
			candidates = append(candidates, rec)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return rank(candidates[i], candidates[j]) > 0
	})

	if len(candidates) > 0 {
		outcome.Current = candidates[0].Path
	}
	if len(candidates) > 1 {
		a, b := candidates[0], candidates[1]
		if types.CompareRevisions(a.ParsedRevision(), b.ParsedRevision()) == 0 {
			outcome.Conflict = true
			r.logger.Warn("tied revisions, latest modification wins",
				"error", types.ErrGroupResolutionConflict,
				"group", key.String(),
				"revision", a.Revision,
				"winner", a.Path,
				"runner_up", b.Path)
		}
	}

	flags := make(map[string]bool)
	for _, rec := range records {
		want := rec.Path == outcome.Current
		if rec.IsCurrent != want {
			flags[rec.Path] = want
			outcome.Changed = append(outcome.Changed, rec.Path)
		}
	}
	if len(flags) == 0 {
		return outcome, nil
	}

	if err := r.store.SetCurrentFlags(ctx, flags); err != nil {
		return nil, fmt.Errorf("failed to set current flags for %s: %w", key, err)
	}

	r.logger.Debug("group resolved",
		"group", key.String(),
		"current", outcome.Current,
		"changed", len(outcome.Changed))
	return outcome, nil
}

// rank orders a and b by revision, then modification time, then path.
// It returns a positive number when a should be current over b.
func rank(a, b *types.FileRecord) int {
	if c := types.CompareRevisions(a.ParsedRevision(), b.ParsedRevision()); c != 0 {
		return c
	}
	switch {
	case a.ModTime.After(b.ModTime):
		return 1
	case a.ModTime.Before(b.ModTime):
		return -1
	}
	switch {
	case a.Path > b.Path:
		return 1
	case a.Path < b.Path:
		return -1
	}
	return 0
}
