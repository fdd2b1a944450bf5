// Package retention defines the data model of the retention engine and the
// pure rules that operate on it.
//
// # Policies
//
// A Policy describes what data to retain (Scope), for how long
// (RetentionRule), what happens at expiry (Disposition) and when the
// engine looks for due records (Schedule). Policies move through the
// lifecycle:
//
//	draft -> active <-> paused -> archived
//
// Archived is terminal. A paused policy carries a PausedReason so that a
// legal hold and a manual pause are never confused:
//
//	p.ApplyHold(retention.LegalHold{Name: "Acme v. Example"}, now)
//	// p.Status == StatusPaused, p.PausedReason == PausedLegalHold
//
//	p.ReleaseHold("counsel@example.com", true, now)
//	// p.Status == StatusActive
//
// # Legal Hold Guard
//
// CanExecute is the gate every execution passes first. It never errors:
//
//	if d := retention.CanExecute(p); !d.Allowed {
//	    log.Printf("blocked: %s", d.Reason)
//	}
//
// # Ledger
//
// Executions are append-only. Statistics are derived from them and can be
// re-derived at any time with ReplayStatistics.
//
// # Collaborators
//
// The engine reaches records only through the DataStore interface and
// persists policies through Repository. Implementations live in the
// datastore and storage subpackages.
package retention
