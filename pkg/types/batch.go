package types

import (
	"path/filepath"
	"strings"
	"time"
)

// BatchTrigger names what started a batch
type BatchTrigger string

const (
	TriggerWatch BatchTrigger = "watch"
	TriggerScan  BatchTrigger = "scan"
	TriggerMCP   BatchTrigger = "mcp"
)

// BatchRecord is the stored summary of one processed batch
type BatchRecord struct {
	ID          string
	Trigger     BatchTrigger
	Root        string
	StartedAt   time.Time
	Duration    time.Duration
	Files       int
	Completed   int
	Skipped     int
	Failed      int
	Retried     int
	GroupErrors int
	Errors      []string
}

// ProjectStats aggregates the stored records of one project
type ProjectStats struct {
	Project        string
	TotalFiles     int
	TotalSizeBytes int64
	CurrentSheets  int
	ByStatus       map[Status]int
	ByDiscipline   map[string]int // "" for records without a discipline
	ByExtension    map[string]int // lower case, "" for none
}

// NewProjectStats returns empty stats for project
func NewProjectStats(project string) *ProjectStats {
	return &ProjectStats{
		Project:      project,
		ByStatus:     make(map[Status]int),
		ByDiscipline: make(map[string]int),
		ByExtension:  make(map[string]int),
	}
}

// Add counts r. Only Path, SizeBytes, Status, DisciplineCode and IsCurrent are read.
func (s *ProjectStats) Add(r *FileRecord) {
	s.TotalFiles++
	s.TotalSizeBytes += r.SizeBytes
	if r.IsCurrent {
		s.CurrentSheets++
	}
	s.ByStatus[r.Status]++
	s.ByDiscipline[r.DisciplineCode]++
	s.ByExtension[strings.ToLower(filepath.Ext(r.Path))]++
}
