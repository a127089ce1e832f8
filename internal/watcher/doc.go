// Package watcher turns filesystem change notifications into batches.
//
// A Source (FSNotifySource in production) reports changes below a root. The
// Batcher filters them, coalesces repeated events for a path within a
// debounce window, and hands each batch to a BatchHandler. Only one batch
// runs at a time; events that arrive meanwhile accumulate for the next one.
// Paths returned by the handler are re-queued until they exhaust their
// retries.
//
// Stop drains: the in-flight batch completes, anything still pending is
// flushed as a final batch, and only then does the batcher report Stopped.
package watcher
