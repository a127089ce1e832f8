//go:build !darwin && !windows && !linux

package indexer

import (
	"os"
	"time"
)

// birthTime is unavailable here; callers fall back to first-seen
func birthTime(string, os.FileInfo) time.Time {
	return time.Time{}
}
