package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/aecwatch/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serializes writers, which gives same-path upserts
	// last-writer-wins ordering without extra locking.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const recordColumns = `
	path, digest, size_bytes, file_created_at, mod_time, last_processed_at,
	project, phase_code, phase_name, discipline_code, discipline_name,
	doc_type_code, doc_type_name, sheet, revision, revision_kind, date_issued,
	confidence, is_standard, naming_format, status, error, is_current,
	payload, payload_warning
`

// withTx runs fn inside a transaction, rolling back on error
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Record operations

// upsertRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertRecordWithQuerier(ctx context.Context, q querier, r *types.FileRecord) error {
	query := `
		INSERT INTO files (` + recordColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			digest = excluded.digest,
			size_bytes = excluded.size_bytes,
			file_created_at = excluded.file_created_at,
			mod_time = excluded.mod_time,
			last_processed_at = excluded.last_processed_at,
			project = excluded.project,
			phase_code = excluded.phase_code,
			phase_name = excluded.phase_name,
			discipline_code = excluded.discipline_code,
			discipline_name = excluded.discipline_name,
			doc_type_code = excluded.doc_type_code,
			doc_type_name = excluded.doc_type_name,
			sheet = excluded.sheet,
			revision = excluded.revision,
			revision_kind = excluded.revision_kind,
			date_issued = excluded.date_issued,
			confidence = excluded.confidence,
			is_standard = excluded.is_standard,
			naming_format = excluded.naming_format,
			status = excluded.status,
			error = excluded.error,
			payload = excluded.payload,
			payload_warning = excluded.payload_warning,
			updated_at = excluded.updated_at
		RETURNING is_current
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		r.Path, r.Digest, r.SizeBytes, r.CreatedAt, r.ModTime, r.LastProcessedAt,
		r.Project, r.PhaseCode, r.PhaseName, r.DisciplineCode, r.DisciplineName,
		r.DocTypeCode, r.DocTypeName, r.Sheet, r.Revision, string(r.RevisionKind), r.DateIssued,
		r.Confidence, r.IsStandard, string(r.NamingFormat), string(r.Status), r.Error, false,
		r.Payload, r.PayloadWarning, now, now,
	).Scan(&r.IsCurrent)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertRecord(ctx context.Context, record *types.FileRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.upsertRecordWithQuerier(ctx, s.db, record)
}

func (s *SQLiteStorage) Touch(ctx context.Context, path string, processedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET last_processed_at = ?, updated_at = ? WHERE path = ?`,
		processedAt, time.Now(), path)
	if err != nil {
		return fmt.Errorf("failed to touch record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanRecord reads one row selected with recordColumns
func scanRecord(row scanner) (*types.FileRecord, error) {
	var r types.FileRecord
	var revisionKind, namingFormat, status string
	var errMsg, payloadWarning sql.NullString
	var createdAt, modTime, processedAt sql.NullTime

	err := row.Scan(
		&r.Path, &r.Digest, &r.SizeBytes, &createdAt, &modTime, &processedAt,
		&r.Project, &r.PhaseCode, &r.PhaseName, &r.DisciplineCode, &r.DisciplineName,
		&r.DocTypeCode, &r.DocTypeName, &r.Sheet, &r.Revision, &revisionKind, &r.DateIssued,
		&r.Confidence, &r.IsStandard, &namingFormat, &status, &errMsg, &r.IsCurrent,
		&r.Payload, &payloadWarning,
	)
	if err != nil {
		return nil, err
	}

	r.RevisionKind = types.RevisionKind(revisionKind)
	r.NamingFormat = types.NamingFormat(namingFormat)
	r.Status = types.Status(status)
	if createdAt.Valid {
		r.CreatedAt = createdAt.Time
	}
	if modTime.Valid {
		r.ModTime = modTime.Time
	}
	if processedAt.Valid {
		r.LastProcessedAt = processedAt.Time
	}
	if errMsg.Valid {
		r.Error = &errMsg.String
	}
	if payloadWarning.Valid {
		r.PayloadWarning = &payloadWarning.String
	}
	return &r, nil
}

// queryRecords runs query and scans every row
func queryRecords(ctx context.Context, q querier, query string, args ...interface{}) ([]*types.FileRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*types.FileRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Query operations

func (s *SQLiteStorage) GetByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE path = ?`
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStorage) GetByGroup(ctx context.Context, key types.GroupKey) ([]*types.FileRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM files
		WHERE project = ? AND discipline_code = ? AND sheet = ?
		ORDER BY path
	`
	return queryRecords(ctx, s.db, query, key.Project, key.Discipline, key.Sheet)
}

func (s *SQLiteStorage) GetAllCurrentRevisions(ctx context.Context, project string) ([]*types.FileRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM files
		WHERE project = ? AND is_current = 1
		ORDER BY discipline_code, sheet
	`
	return queryRecords(ctx, s.db, query, project)
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT project FROM files WHERE project != '' ORDER BY project`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStorage) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM files GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[types.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStorage) ProjectStats(ctx context.Context, project string) (*types.ProjectStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, size_bytes, status, discipline_code, is_current FROM files WHERE project = ?`, project)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := types.NewProjectStats(project)
	for rows.Next() {
		var r types.FileRecord
		var status string
		if err := rows.Scan(&r.Path, &r.SizeBytes, &status, &r.DisciplineCode, &r.IsCurrent); err != nil {
			return nil, err
		}
		r.Status = types.Status(status)
		stats.Add(&r)
	}
	return stats, rows.Err()
}

// Batch operations

func (s *SQLiteStorage) RecordBatch(ctx context.Context, b *types.BatchRecord) error {
	errs := b.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to encode batch errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (
			id, source, root, started_at, duration_ms, files,
			completed, skipped, failed, retried, group_errors, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, string(b.Trigger), b.Root, b.StartedAt, b.Duration.Milliseconds(), b.Files,
		b.Completed, b.Skipped, b.Failed, b.Retried, b.GroupErrors, string(errorsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListBatches(ctx context.Context, limit int) ([]*types.BatchRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, root, started_at, duration_ms, files,
			completed, skipped, failed, retried, group_errors, errors
		FROM batches
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	batches := make([]*types.BatchRecord, 0)
	for rows.Next() {
		var b types.BatchRecord
		var trigger, errorsJSON string
		var durationMS int64
		if err := rows.Scan(&b.ID, &trigger, &b.Root, &b.StartedAt, &durationMS, &b.Files,
			&b.Completed, &b.Skipped, &b.Failed, &b.Retried, &b.GroupErrors, &errorsJSON); err != nil {
			return nil, err
		}
		b.Trigger = types.BatchTrigger(trigger)
		b.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(errorsJSON), &b.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors of batch %s: %w", b.ID, err)
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

func (s *SQLiteStorage) SetCurrentFlags(ctx context.Context, flags map[string]bool) error {
	if len(flags) == 0 {
		return nil
	}
	return s.withTx(ctx, func(q querier) error {
		now := time.Now()
		for path, current := range flags {
			if _, err := q.ExecContext(ctx,
				`UPDATE files SET is_current = ?, updated_at = ? WHERE path = ?`,
				current, now, path); err != nil {
				return fmt.Errorf("failed to set current flag for %s: %w", path, err)
			}
		}
		return nil
	})
}
