// Package storage provides the metadata store for observed files.
//
// The store keeps one FileRecord per absolute path and answers two kinds of
// lookups: by path (change detection) and by group key (revision resolution).
//
// # Implementations
//
//   - SQLiteStorage: persistent, schema managed by semver migrations
//   - MemoryStorage: process-local maps, used by tests and one-shot scans
//   - CachedStorage: LRU read-through cache in front of either
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migration versions
//   - files: one row per path, classification columns, lifecycle flags, payload
//
// Indexes cover (project, discipline_code, sheet) for group lookups and
// (project, is_current) for current-revision listings.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("/var/lib/aecwatch/aecwatch.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	record := &types.FileRecord{
//	    Path:   "/projects/PROJ1/PROJ1_CD_A_DWG_101_R1_010124.pdf",
//	    Digest: digest,
//	    Status: types.StatusCompleted,
//	}
//	if err := store.UpsertRecord(ctx, record); err != nil {
//	    return err
//	}
//
//	siblings, err := store.GetByGroup(ctx, record.Group())
//
// # Currency
//
// UpsertRecord never changes IsCurrent on an existing row. The revision
// resolver owns that flag and writes it with SetCurrentFlags, which applies
// all changes for a group in one transaction.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
