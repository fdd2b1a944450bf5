package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/custodian/pkg/retention"
)

// SQLiteConfig contains configuration for the SQLite repository.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/policies.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteRepository implements retention.Repository using SQLite.
type SQLiteRepository struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteRepository opens (or creates) the policy database and
// initializes its schema.
func NewSQLiteRepository(config *SQLiteConfig) (*SQLiteRepository, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "retention.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, retention.NewStorageError("sqlite", "create_dir", err)
		}
	}

	// Open database connection. The busy timeout goes in the DSN so that
	// every pooled connection gets it, not only the first.
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, retention.NewStorageError("sqlite", "open", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	r := &SQLiteRepository{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite repository initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return r, nil
}

// initialize sets up the database schema and enables WAL mode.
func (r *SQLiteRepository) initialize() error {
	if r.config.WALMode {
		if _, err := r.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return retention.NewStorageError("sqlite", "enable_wal", err)
		}
		r.logger.Debug("WAL mode enabled")
	}

	if _, err := r.db.Exec(Schema); err != nil {
		return retention.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := r.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return retention.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := r.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return retention.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return retention.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	r.logger.Debug("schema version verified", "version", version)
	return nil
}

// policyRow holds the encoded form of a policy.
type policyRow struct {
	scope, rule, disposition, compliance string
	schedule, hold, pending, stats       string
	nextRun                              sql.NullInt64
}

func encodePolicy(p *retention.Policy) (*policyRow, error) {
	var row policyRow
	fields := []struct {
		dst *string
		v   any
	}{
		{&row.scope, p.Scope},
		{&row.rule, p.Rule},
		{&row.disposition, p.Disposition},
		{&row.compliance, p.Compliance},
		{&row.schedule, p.Schedule},
		{&row.hold, p.LegalHold},
		{&row.pending, nonNilPending(p.PendingRecords)},
		{&row.stats, p.Statistics},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return nil, err
		}
		*f.dst = string(b)
	}
	if p.Schedule.NextRun != nil {
		row.nextRun = sql.NullInt64{Int64: p.Schedule.NextRun.UnixNano(), Valid: true}
	}
	return &row, nil
}

// Create stores a new policy.
func (r *SQLiteRepository) Create(ctx context.Context, p *retention.Policy) error {
	row, err := encodePolicy(p)
	if err != nil {
		return retention.NewStorageError("sqlite", "encode_policy", err)
	}

	query := `INSERT INTO policies (` + policyColumns + `, hold_active, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, nullString(p.Description), nullString(p.CreatedBy), nullString(p.ExternalID),
		row.scope, row.rule, row.disposition, row.compliance, row.schedule, row.hold, row.pending, row.stats,
		string(p.Status), nullString(string(p.PausedReason)), p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
		p.LegalHold.IsActive, row.nextRun,
	)
	if err != nil {
		return retention.NewStorageError("sqlite", "create", err)
	}
	return nil
}

// Get returns a policy with its full execution ledger.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*retention.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = ?`

	p, err := scanPolicy(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, retention.NewNotFoundError(id)
	}
	if err != nil {
		return nil, retention.NewStorageError("sqlite", "get", err)
	}

	execs, err := r.queryExecutions(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	p.Executions = execs
	return p, nil
}

// Save replaces the stored policy state. The ledger is untouched.
func (r *SQLiteRepository) Save(ctx context.Context, p *retention.Policy) error {
	row, err := encodePolicy(p)
	if err != nil {
		return retention.NewStorageError("sqlite", "encode_policy", err)
	}

	query := `
		UPDATE policies SET
			owner_id = ?, name = ?, description = ?, created_by = ?, external_id = ?,
			scope = ?, retention = ?, disposition = ?, compliance = ?, schedule = ?,
			legal_hold = ?, pending_records = ?, statistics = ?,
			status = ?, paused_reason = ?, hold_active = ?, next_run = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		p.OwnerID, p.Name, nullString(p.Description), nullString(p.CreatedBy), nullString(p.ExternalID),
		row.scope, row.rule, row.disposition, row.compliance, row.schedule,
		row.hold, row.pending, row.stats,
		string(p.Status), nullString(string(p.PausedReason)), p.LegalHold.IsActive, row.nextRun, p.UpdatedAt.UnixNano(),
		p.ID,
	)
	if err != nil {
		return retention.NewStorageError("sqlite", "save", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return retention.NewNotFoundError(p.ID)
	}
	return nil
}

// List returns policies matching the filter, without executions.
func (r *SQLiteRepository) List(ctx context.Context, filter retention.Filter) ([]*retention.Policy, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + policyColumns + ` FROM policies`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	return r.queryPolicies(ctx, "list", query, args...)
}

// Due returns active, unheld policies whose next run is at or before now.
func (r *SQLiteRepository) Due(ctx context.Context, now time.Time) ([]*retention.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies
		WHERE status = ? AND hold_active = 0 AND next_run IS NOT NULL AND next_run <= ?
		ORDER BY next_run, id`

	return r.queryPolicies(ctx, "due", query, string(retention.StatusActive), now.UnixNano())
}

func (r *SQLiteRepository) queryPolicies(ctx context.Context, op, query string, args ...any) ([]*retention.Policy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, retention.NewStorageError("sqlite", op, err)
	}
	defer rows.Close()

	var results []*retention.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, retention.NewStorageError("sqlite", op+"_scan", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, retention.NewStorageError("sqlite", op, err)
	}
	return results, nil
}

// AppendExecution adds a record to the end of the policy's ledger.
func (r *SQLiteRepository) AppendExecution(ctx context.Context, policyID string, rec *retention.ExecutionRecord) error {
	if err := r.ensurePolicy(ctx, policyID); err != nil {
		return err
	}

	query := `INSERT INTO executions (` + executionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, policyID, rec.StartedAt.UnixNano(), nullTime(rec.CompletedAt),
		string(rec.Status), string(rec.Trigger), rec.DryRun, rec.Forced,
		rec.RecordsProcessed, rec.RecordsDeleted, rec.RecordsArchived, rec.RecordsFailed, rec.DataVolume,
		nullString(rec.Error),
	)
	if err != nil {
		return retention.NewStorageError("sqlite", "append_execution", err)
	}
	return nil
}

// CompleteExecution writes the terminal fields of a running record.
// The completed_at guard makes a second completion a no-op at the row level.
func (r *SQLiteRepository) CompleteExecution(ctx context.Context, policyID string, rec *retention.ExecutionRecord) error {
	query := `
		UPDATE executions SET
			status = ?, completed_at = ?,
			records_processed = ?, records_deleted = ?, records_archived = ?, records_failed = ?,
			data_volume = ?, error = ?
		WHERE policy_id = ? AND id = ? AND completed_at IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		string(rec.Status), nullTime(rec.CompletedAt),
		rec.RecordsProcessed, rec.RecordsDeleted, rec.RecordsArchived, rec.RecordsFailed,
		rec.DataVolume, nullString(rec.Error),
		policyID, rec.ID,
	)
	if err != nil {
		return retention.NewStorageError("sqlite", "complete_execution", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE policy_id = ? AND id = ?`, policyID, rec.ID).Scan(&exists)
	if err != nil {
		return retention.NewStorageError("sqlite", "complete_execution", err)
	}
	if exists == 0 {
		return &retention.NotFoundError{Kind: "execution", ID: rec.ID}
	}
	return retention.ErrExecutionCompleted
}

// Executions returns the most recent limit records, oldest first.
func (r *SQLiteRepository) Executions(ctx context.Context, policyID string, limit int) ([]retention.ExecutionRecord, error) {
	if err := r.ensurePolicy(ctx, policyID); err != nil {
		return nil, err
	}
	return r.queryExecutions(ctx, policyID, limit)
}

func (r *SQLiteRepository) queryExecutions(ctx context.Context, policyID string, limit int) ([]retention.ExecutionRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	// Newest first for the LIMIT, reversed below.
	query := `SELECT ` + executionColumns + ` FROM executions
		WHERE policy_id = ? ORDER BY seq DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, policyID, limit)
	if err != nil {
		return nil, retention.NewStorageError("sqlite", "executions", err)
	}
	defer rows.Close()

	var records []retention.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, retention.NewStorageError("sqlite", "executions_scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, retention.NewStorageError("sqlite", "executions", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (r *SQLiteRepository) ensurePolicy(ctx context.Context, id string) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policies WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return retention.NewStorageError("sqlite", "lookup", err)
	}
	if n == 0 {
		return retention.NewNotFoundError(id)
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	r.logger.Info("closing SQLite repository")
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPolicy(s scanner) (*retention.Policy, error) {
	var (
		p                    retention.Policy
		status               string
		createdAt, updatedAt int64

		description, createdBy, externalID, pausedReason sql.NullString

		scope, rule, disposition, compliance string
		schedule, hold, pending, stats       string
	)

	err := s.Scan(
		&p.ID, &p.OwnerID, &p.Name, &description, &createdBy, &externalID,
		&scope, &rule, &disposition, &compliance, &schedule, &hold, &pending, &stats,
		&status, &pausedReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.CreatedBy = createdBy.String
	p.ExternalID = externalID.String
	p.Status = retention.Status(status)
	p.PausedReason = retention.PausedReason(pausedReason.String)
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()

	docs := []struct {
		src string
		dst any
	}{
		{scope, &p.Scope},
		{rule, &p.Rule},
		{disposition, &p.Disposition},
		{compliance, &p.Compliance},
		{schedule, &p.Schedule},
		{hold, &p.LegalHold},
		{pending, &p.PendingRecords},
		{stats, &p.Statistics},
	}
	for _, d := range docs {
		if err := json.Unmarshal([]byte(d.src), d.dst); err != nil {
			return nil, fmt.Errorf("failed to decode policy %s: %w", p.ID, err)
		}
	}
	if len(p.PendingRecords) == 0 {
		p.PendingRecords = nil
	}
	return &p, nil
}

func scanExecution(s scanner) (retention.ExecutionRecord, error) {
	var (
		rec             retention.ExecutionRecord
		startedAt       int64
		completedAt     sql.NullInt64
		status, trigger string
		errMsg          sql.NullString
	)

	err := s.Scan(
		&rec.ID, &rec.PolicyID, &startedAt, &completedAt, &status, &trigger, &rec.DryRun, &rec.Forced,
		&rec.RecordsProcessed, &rec.RecordsDeleted, &rec.RecordsArchived, &rec.RecordsFailed, &rec.DataVolume,
		&errMsg,
	)
	if err != nil {
		return rec, err
	}

	rec.StartedAt = time.Unix(0, startedAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		rec.CompletedAt = &t
	}
	rec.Status = retention.ExecutionStatus(status)
	rec.Trigger = retention.Trigger(trigger)
	rec.Error = errMsg.String
	return rec, nil
}

func nonNilPending(p []retention.PendingRecord) []retention.PendingRecord {
	if p == nil {
		return []retention.PendingRecord{}
	}
	return p
}

// nullString converts empty strings to NULL for optional fields.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
