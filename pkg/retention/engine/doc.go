// Package engine implements the retention and disposition engine: the
// operations that change policy state and the executor that disposes of
// records through a retention.DataStore.
//
// # Execution
//
// An execution first passes the legal hold guard (retention.CanExecute).
// A blocked execution writes nothing. Otherwise one ExecutionRecord is
// appended and completed, whatever the outcome:
//
//   - a policy that requires approval disposes of records only with an
//     unconsumed approval and never on a scheduled tick; the first
//     successful disposition of at least one record consumes it
//   - any other policy disposes when AutoDispose is on or the execution is
//     forced
//   - everything else is a dry run that only counts the due records
//
// Data store failures and timeouts become failed records, never Go errors.
// Only persistence failures and unknown ids are returned as errors.
//
// # Concurrency
//
// Every operation that writes a policy holds that policy's lock, so an
// execution, a legal hold and an approval on the same policy never
// interleave. Reads (GetPendingDispositions, GetDashboard) take no lock.
//
//	eng, err := engine.New(engine.ConfigFrom(cfg), engine.Dependencies{
//		Repository: repo,
//		DataStore:  store,
//		Metrics:    collector,
//	})
//	results, err := eng.RunScheduledPolicies(ctx, time.Now())
package engine
