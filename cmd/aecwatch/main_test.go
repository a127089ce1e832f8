package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	jsonOutput = false
	statusProject, statusBatches = "", 5
	dryRun = false
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, "config", "--root", root, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: debug")
	assert.Contains(t, out, "root: "+root)
	assert.Contains(t, out, "debounce: 5s")
}

func TestConfigCommand_InvalidLevel(t *testing.T) {
	_, err := execute(t, "config", "--root", t.TempDir(), "--log-level", "chatty")
	assert.ErrorContains(t, err, "log_level")
}

func TestScanThenQuery(t *testing.T) {
	root := t.TempDir()
	db := filepath.Join(t.TempDir(), "index.db")
	for name, content := range map[string]string{
		"PROJ1_CD_A_DWG_101_R1_010124.pdf": "%PDF-1.4\nr1",
		"PROJ1_CD_A_DWG_101_R2_020124.pdf": "%PDF-1.4\nr2",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}

	out, err := execute(t, "scan", "--root", root, "--db", db, "--log-level", "error", "--json")
	require.NoError(t, err)
	var scan scanOutput
	require.NoError(t, json.Unmarshal([]byte(out), &scan))
	assert.Equal(t, 2, scan.Found)
	assert.Equal(t, 2, scan.Completed)

	out, err = execute(t, "current", "PROJ1", "--root", root, "--db", db, "--log-level", "error", "--json")
	require.NoError(t, err)
	var current []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &current))
	require.Len(t, current, 1)
	assert.Equal(t, "R2", current[0].Revision)
	assert.True(t, current[0].IsCurrent)

	out, err = execute(t, "group", "PROJ1", "A", "101", "--root", root, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "R1")
	assert.Contains(t, out, "R2")

	out, err = execute(t, "status", "--project", "PROJ1", "--root", root, "--db", db, "--log-level", "error", "--json")
	require.NoError(t, err)
	var status statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.ByStatus["completed"])
	require.Len(t, status.Batches, 1)
	assert.Equal(t, scan.BatchID, status.Batches[0].ID)
	assert.Equal(t, "scan", status.Batches[0].Trigger)
	assert.Equal(t, 2, status.Batches[0].Completed)
	require.NotNil(t, status.Project)
	assert.Equal(t, 2, status.Project.TotalFiles)
	assert.Equal(t, 1, status.Project.CurrentSheets)
	assert.Equal(t, map[string]int{".pdf": 2}, status.Project.ByExtension)
}

func TestScanDryRun(t *testing.T) {
	root := t.TempDir()
	db := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(filepath.Join(root, "PROJ1_CD_A_DWG_101_R1_010124.pdf"), []byte("r1"), 0o644))

	out, err := execute(t, "scan", "--dry-run", "--root", root, "--db", db, "--log-level", "error", "--json")
	require.NoError(t, err)
	var scan scanOutput
	require.NoError(t, json.Unmarshal([]byte(out), &scan))
	assert.Equal(t, 1, scan.Completed)

	assert.NoFileExists(t, db)
	assert.NoDirExists(t, filepath.Join(root, ".aecwatch"))
}
