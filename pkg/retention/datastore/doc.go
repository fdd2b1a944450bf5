// Package datastore provides retention.DataStore implementations.
//
// Memory is a deterministic in-memory store with failure injection, used
// by tests and for dry runs against fixture data. SQLiteStore keeps records
// in a SQLite table and archives them as JSON files.
//
// Both stores interpret a policy scope the same way:
//
//   - DataCategories and DataSources, when non-empty, are allow-lists
//   - Classification, when set, must match exactly
//   - Filter is "key=value[,key=value]" matched against record tags
package datastore
