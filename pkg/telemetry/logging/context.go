package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// PolicyIDKey is the context key for the policy being operated on.
	PolicyIDKey contextKey = "policy_id"

	// ExecutionIDKey is the context key for the current execution.
	ExecutionIDKey contextKey = "execution_id"

	// OwnerIDKey is the context key for the policy owner.
	OwnerIDKey contextKey = "owner_id"

	// TriggerKey is the context key for what started an execution.
	TriggerKey contextKey = "trigger"

	// ActorKey is the context key for the user acting through the CLI.
	ActorKey contextKey = "actor"
)

// contextFieldKeys lists the fields copied from a context into every record,
// in output order.
var contextFieldKeys = []contextKey{PolicyIDKey, ExecutionIDKey, OwnerIDKey, TriggerKey, ActorKey}

// WithPolicyID adds a policy id to the context.
func WithPolicyID(ctx context.Context, policyID string) context.Context {
	return context.WithValue(ctx, PolicyIDKey, policyID)
}

// GetPolicyID returns the policy id from the context, if any.
func GetPolicyID(ctx context.Context) string {
	return stringValue(ctx, PolicyIDKey)
}

// WithExecutionID adds an execution id to the context.
func WithExecutionID(ctx context.Context, executionID string) context.Context {
	return context.WithValue(ctx, ExecutionIDKey, executionID)
}

// GetExecutionID returns the execution id from the context, if any.
func GetExecutionID(ctx context.Context) string {
	return stringValue(ctx, ExecutionIDKey)
}

// WithOwnerID adds a policy owner id to the context.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetOwnerID returns the owner id from the context, if any.
func GetOwnerID(ctx context.Context) string {
	return stringValue(ctx, OwnerIDKey)
}

// WithTrigger adds an execution trigger to the context.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, TriggerKey, trigger)
}

// GetTrigger returns the execution trigger from the context, if any.
func GetTrigger(ctx context.Context) string {
	return stringValue(ctx, TriggerKey)
}

// WithActor adds the acting user to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor returns the acting user from the context, if any.
func GetActor(ctx context.Context) string {
	return stringValue(ctx, ActorKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextAttrs returns the log fields carried by ctx: the retention fields
// set with the With* helpers, then trace_id and span_id of the active span.
func ContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range contextFieldKeys {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return attrs
}

// contextHandler adds ContextAttrs to every record logged with a context.
// Components log through slog.Default(), so installing a Logger as the
// default is enough for their *Context calls to carry policy fields.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := ContextAttrs(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}
