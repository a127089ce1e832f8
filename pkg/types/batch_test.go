package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStatsAdd(t *testing.T) {
	stats := NewProjectStats("PROJ1")
	stats.Add(&FileRecord{Path: "/p/a.PDF", SizeBytes: 10, Status: StatusCompleted, DisciplineCode: "A", IsCurrent: true})
	stats.Add(&FileRecord{Path: "/p/b.pdf", SizeBytes: 5, Status: StatusCompleted, DisciplineCode: "A"})
	stats.Add(&FileRecord{Path: "/p/notes", SizeBytes: 1, Status: StatusFailed})

	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, int64(16), stats.TotalSizeBytes)
	assert.Equal(t, 1, stats.CurrentSheets)
	assert.Equal(t, map[Status]int{StatusCompleted: 2, StatusFailed: 1}, stats.ByStatus)
	assert.Equal(t, map[string]int{"A": 2, "": 1}, stats.ByDiscipline)
	assert.Equal(t, map[string]int{".pdf": 2, "": 1}, stats.ByExtension)
}
