// Package tracing provides OpenTelemetry tracing for the retention engine.
//
// Spans:
//
//	retention.tick               one scheduler tick
//	  retention.execute          one policy execution (child of the tick)
//	    retention.count_due      DataStore.CountDueRecords
//	    retention.dispose        DataStore.DisposeRecords
//	retention.governance_sync    background governance mirror
//
// Spans carry retention.* attributes (see attributes.go). Export is OTLP over
// gRPC; when tracing is disabled every span is a no-op.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
package tracing
