package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the policy database schema.
// Timestamps are stored as Unix nanoseconds so range queries compare
// numerically regardless of the timezone a value was written in.
const Schema = `
-- One row per retention policy; nested sections are JSON documents
CREATE TABLE IF NOT EXISTS policies (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    created_by TEXT,
    external_id TEXT,

    scope TEXT NOT NULL,
    retention TEXT NOT NULL,
    disposition TEXT NOT NULL,
    compliance TEXT NOT NULL,
    schedule TEXT NOT NULL,
    legal_hold TEXT NOT NULL,
    pending_records TEXT NOT NULL,
    statistics TEXT NOT NULL,

    status TEXT NOT NULL,
    paused_reason TEXT,

    -- Denormalized for the scheduler's due query
    hold_active BOOLEAN NOT NULL DEFAULT 0,
    next_run INTEGER,

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Append-only execution ledger
CREATE TABLE IF NOT EXISTS executions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    policy_id TEXT NOT NULL REFERENCES policies(id),

    started_at INTEGER NOT NULL,
    completed_at INTEGER,
    status TEXT NOT NULL,
    trigger_type TEXT NOT NULL,
    dry_run BOOLEAN NOT NULL DEFAULT 0,
    forced BOOLEAN NOT NULL DEFAULT 0,

    records_processed INTEGER NOT NULL DEFAULT 0,
    records_deleted INTEGER NOT NULL DEFAULT 0,
    records_archived INTEGER NOT NULL DEFAULT 0,
    records_failed INTEGER NOT NULL DEFAULT 0,
    data_volume INTEGER NOT NULL DEFAULT 0,
    error TEXT,

    UNIQUE (policy_id, id)
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_owner ON policies(owner_id);
CREATE INDEX IF NOT EXISTS idx_policies_due ON policies(status, hold_active, next_run);
CREATE INDEX IF NOT EXISTS idx_executions_policy ON executions(policy_id, seq);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const policyColumns = `
	id, owner_id, name, description, created_by, external_id,
	scope, retention, disposition, compliance, schedule, legal_hold, pending_records, statistics,
	status, paused_reason, created_at, updated_at`

const executionColumns = `
	id, policy_id, started_at, completed_at, status, trigger_type, dry_run, forced,
	records_processed, records_deleted, records_archived, records_failed, data_volume, error`
