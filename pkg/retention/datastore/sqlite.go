package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/custodian/pkg/retention"
)

// SQLiteConfig configures the SQLite record store.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements retention.DataStore over a SQLite records table.
// Record tags are a JSON column matched with json_extract. Archive
// dispositions export the records to a JSON file before deleting them.
type SQLiteStore struct {
	db                 *sql.DB
	path               string
	checkpointInterval time.Duration
	logger             *slog.Logger
	done               chan struct{}
	closeOnce          sync.Once

	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteStore opens (or creates) a record store with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{
		Path:               path,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig opens (or creates) a record store.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:                 db,
		path:               cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		logger:             slog.Default().With("component", "retention.datastore.sqlite"),
		done:               make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	s.logger.Info("record store opened", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		source TEXT NOT NULL,
		classification TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '{}',
		size INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		last_accessed_at INTEGER,
		last_modified_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_records_category ON records(category);
	CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO records (id, category, source, classification, tags, size, created_at, last_accessed_at, last_modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			source = excluded.source,
			classification = excluded.classification,
			tags = excluded.tags,
			size = excluded.size,
			created_at = excluded.created_at,
			last_accessed_at = excluded.last_accessed_at,
			last_modified_at = excluded.last_modified_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM records WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Put inserts or replaces records.
func (s *SQLiteStore) Put(ctx context.Context, records ...*Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.putStmt)
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id cannot be empty")
		}
		tags := r.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for record %s: %w", r.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			r.ID, r.Category, r.Source, r.Classification, string(tagsJSON), r.Size,
			r.CreatedAt.UnixNano(), nullUnix(r.LastAccessedAt), nullUnix(r.LastModifiedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to put record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CountDueRecords implements retention.DataStore.
func (s *SQLiteStore) CountDueRecords(ctx context.Context, scope retention.Scope, rule retention.RetentionRule, now time.Time) (retention.DueSummary, error) {
	due, err := s.due(ctx, scope, rule, now)
	if err != nil {
		return retention.DueSummary{}, err
	}
	return summarize(due, rule), nil
}

// DisposeRecords implements retention.DataStore. For archive actions the
// whole due set is exported before any row is deleted; a failed export
// fails the call and deletes nothing.
func (s *SQLiteStore) DisposeRecords(ctx context.Context, req retention.DisposalRequest) (retention.DisposalResult, error) {
	due, err := s.due(ctx, req.Scope, req.Rule, req.Now)
	if err != nil {
		return retention.DisposalResult{}, err
	}
	if len(due) == 0 {
		return retention.DisposalResult{}, nil
	}

	var archiveFile string
	if req.Action == retention.ActionArchive {
		archiveFile, err = writeArchive(req.ArchiveLocation, req.PolicyID, req.Now, due)
		if err != nil {
			return retention.DisposalResult{}, err
		}
		s.logger.Info("records archived",
			"policy_id", req.PolicyID,
			"archive_file", archiveFile,
			"record_count", len(due),
		)
	}

	result, err := s.deleteAll(ctx, due)
	if err != nil {
		if archiveFile != "" {
			os.Remove(archiveFile)
		}
		return retention.DisposalResult{}, err
	}
	return result, nil
}

func (s *SQLiteStore) deleteAll(ctx context.Context, due []*Record) (retention.DisposalResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return retention.DisposalResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.deleteStmt)

	var result retention.DisposalResult
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return retention.DisposalResult{}, err
		}
		res, err := stmt.ExecContext(ctx, r.ID)
		if err != nil {
			s.logger.Warn("failed to delete record", "record_id", r.ID, "error", err)
			result.Processed++
			result.Failed++
			continue
		}
		// Already gone: another policy with an overlapping scope got there first.
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		result.Processed++
		result.Succeeded++
		result.Volume += r.Size
	}

	if err := tx.Commit(); err != nil {
		return retention.DisposalResult{}, fmt.Errorf("failed to commit disposal: %w", err)
	}
	return result, nil
}

// due loads the in-scope records and keeps the ones due under rule.
func (s *SQLiteStore) due(ctx context.Context, scope retention.Scope, rule retention.RetentionRule, now time.Time) ([]*Record, error) {
	query, args, err := scopeQuery(scope)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var due []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if rule.IsDue(r.Times(), now) {
			due = append(due, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return due, nil
}

// scopeQuery builds the record selection for a scope.
func scopeQuery(scope retention.Scope) (string, []any, error) {
	tags, err := ParseFilter(scope.Filter)
	if err != nil {
		return "", nil, err
	}

	var (
		conds []string
		args  []any
	)
	if len(scope.DataCategories) > 0 {
		conds = append(conds, "category IN ("+placeholders(len(scope.DataCategories))+")")
		for _, c := range scope.DataCategories {
			args = append(args, c)
		}
	}
	if len(scope.DataSources) > 0 {
		conds = append(conds, "source IN ("+placeholders(len(scope.DataSources))+")")
		for _, src := range scope.DataSources {
			args = append(args, src)
		}
	}
	if scope.Classification != "" {
		conds = append(conds, "classification = ?")
		args = append(args, scope.Classification)
	}
	for k, v := range tags {
		conds = append(conds, "json_extract(tags, ?) = ?")
		args = append(args, fmt.Sprintf(`$."%s"`, k), v)
	}

	query := `SELECT id, category, source, classification, tags, size, created_at, last_accessed_at, last_modified_at FROM records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"
	return query, args, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		r                      Record
		tagsJSON               string
		createdAt              int64
		lastAccess, lastModify sql.NullInt64
	)
	if err := rows.Scan(&r.ID, &r.Category, &r.Source, &r.Classification, &tagsJSON, &r.Size,
		&createdAt, &lastAccess, &lastModify); err != nil {
		return nil, err
	}

	if tagsJSON != "" && tagsJSON != "{}" {
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	r.LastAccessedAt = fromNullUnix(lastAccess)
	r.LastModifiedAt = fromNullUnix(lastModify)
	return &r, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store, running a final WAL checkpoint.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.putStmt != nil {
			s.putStmt.Close()
		}
		if s.deleteStmt != nil {
			s.deleteStmt.Close()
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
