// Package storage provides persistence backends for retention policies and
// their execution ledgers.
//
// # Backends
//
//   - SQLite: durable storage for single-node deployments
//   - Memory: in-memory storage for testing
//
// Both implement retention.Repository.
//
// # SQLite Backend
//
// Each policy is one row in the policies table. Scope, retention rule,
// disposition, compliance, schedule, legal hold, approvals and statistics
// are stored as JSON documents. Executions live in a separate append-only
// executions table keyed by (policy_id, id) and ordered by insertion.
//
//	repo, err := storage.NewSQLiteRepository(&storage.SQLiteConfig{
//	    Path:         "data/policies.db",
//	    MaxOpenConns: 10,
//	    MaxIdleConns: 5,
//	    WALMode:      true,
//	    BusyTimeout:  5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Ledger Immutability
//
// An execution record is appended once while running and completed once.
// A second CompleteExecution returns retention.ErrExecutionCompleted.
package storage
