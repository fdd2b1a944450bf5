// Package logging provides the structured logger used by the custodian binary.
//
// Logger wraps log/slog with:
//   - JSON, text, and console formats
//   - a runtime-adjustable level
//   - retention context fields (policy_id, execution_id, owner_id, trigger,
//     actor) and the active trace and span ids, added to every *Context call
//   - optional redaction of e-mail addresses and credentials
//
// Library packages log through slog.Default(). The binary builds a Logger
// from configuration and installs it with SetDefault, after which
//
//	ctx = logging.WithPolicyID(ctx, policy.ID)
//	logger.InfoContext(ctx, "execution completed", "records_processed", n)
//
// emits policy_id without the caller passing it.
package logging
