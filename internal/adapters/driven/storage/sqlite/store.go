package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/perch-labs/perch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
)

// DefaultHistoryKeep is how many reports are retained after pruning.
const DefaultHistoryKeep = 200

// Store is a SQLite-backed database holding reconciliation state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.perch/data/perch.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".perch", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "perch.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// SaveLastSuccess records the start time of the last clean full pass.
func (s *syncStateStore) SaveLastSuccess(ctx context.Context, t time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_success) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_success = excluded.last_success
	`, t.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("saving last success: %w", err)
	}
	return nil
}

// LastSuccess returns the stored timestamp, or a zero time when nothing
// has been recorded yet.
func (s *syncStateStore) LastSuccess(ctx context.Context) (time.Time, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT last_success FROM sync_state WHERE id = 1")

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("scanning last success: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last success: %w", err)
	}
	return t, nil
}

// RecordReport appends a reconciliation report and prunes old history.
func (s *syncStateStore) RecordReport(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return domain.ErrInvalidInput
	}

	failuresJSON, err := json.Marshal(report.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO reports
			(reason, key, coalesced, started_at, duration_ms, created, updated, deleted, unchanged, failed, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(report.Reason), nullString(report.Key), boolToInt(report.Coalesced),
		report.StartedAt.UTC().Format(time.RFC3339Nano), report.Duration.Milliseconds(),
		report.Created, report.Updated, report.Deleted, report.Unchanged, report.Failed,
		string(failuresJSON))

	if err != nil {
		return fmt.Errorf("recording report: %w", err)
	}

	return s.pruneHistory(ctx, DefaultHistoryKeep)
}

// History returns the most recent reports, newest first.
func (s *syncStateStore) History(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryKeep
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT reason, key, coalesced, started_at, duration_ms, created, updated, deleted, unchanged, failed, failures
		FROM reports
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying report history: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report history: %w", err)
	}

	return reports, nil
}

// pruneHistory keeps only the most recent 'keep' reports.
func (s *syncStateStore) pruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM reports
		WHERE id NOT IN (SELECT id FROM reports ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning report history: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanReport scans a report from *sql.Rows.
func scanReport(rows *sql.Rows) (*domain.Report, error) {
	var report domain.Report
	var reason, startedAt string
	var key, failuresJSON sql.NullString
	var coalesced int
	var durationMS int64

	if err := rows.Scan(&reason, &key, &coalesced, &startedAt, &durationMS,
		&report.Created, &report.Updated, &report.Deleted, &report.Unchanged, &report.Failed,
		&failuresJSON); err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	report.Reason = domain.TriggerReason(reason)
	if key.Valid {
		report.Key = key.String
	}
	report.Coalesced = coalesced == 1
	report.Duration = time.Duration(durationMS) * time.Millisecond

	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		report.StartedAt = t
	}

	if failuresJSON.Valid && failuresJSON.String != "" && failuresJSON.String != "null" {
		if err := json.Unmarshal([]byte(failuresJSON.String), &report.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
	}

	return &report, nil
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
