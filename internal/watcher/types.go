package watcher

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPathNotExist indicates the watch root does not exist
	ErrPathNotExist = errors.New("watch path does not exist")

	// ErrPathNotDirectory indicates the watch root is not a directory
	ErrPathNotDirectory = errors.New("watch path is not a directory")

	// ErrInvalidPattern indicates an exclude pattern could not be compiled
	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrAlreadyStarted is returned by Start on a batcher that left Idle
	ErrAlreadyStarted = errors.New("batcher already started")

	// ErrNoHandler indicates a batcher was configured without a handler
	ErrNoHandler = errors.New("batch handler is required")
)

// Op is the kind of change reported for a path
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpRename
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRename:
		return "rename"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ChangeEvent is one change notification for one path
type ChangeEvent struct {
	Path string
	Op   Op
	Time time.Time
}

// Source delivers change events for every file below root. The channel is
// closed when ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context, root string) (<-chan ChangeEvent, error)
}

// Batch is a deduplicated set of paths handed to the pipeline
type Batch struct {
	Seq   int
	Paths []string // sorted
	Final bool     // flushed during Stop
}

// BatchHandler processes a batch and returns the paths to retry in a later
// batch. It runs on its own goroutine, one batch at a time.
type BatchHandler func(ctx context.Context, batch Batch) (retry []string)
