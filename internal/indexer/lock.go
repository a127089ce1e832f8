package indexer

import "sync/atomic"

// ScanLock guards a full-tree scan. A second scan requested while one runs is
// refused rather than queued.
type ScanLock struct {
	state atomic.Int32 // 0 = idle, 1 = scanning
}

// TryAcquire takes the lock without blocking and reports whether it did
func (l *ScanLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *ScanLock) Release() {
	l.state.Store(0)
}

// Held reports whether a scan is running
func (l *ScanLock) Held() bool {
	return l.state.Load() == 1
}
