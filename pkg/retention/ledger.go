package retention

// Apply folds one completed execution record into the statistics.
// Running records are ignored. Dry runs count as executions but never
// move the record counters.
func (s *Statistics) Apply(r ExecutionRecord) {
	if !r.Completed() {
		return
	}
	s.TotalExecutions++

	completed := *r.CompletedAt
	if s.LastExecutionAt == nil || completed.After(*s.LastExecutionAt) {
		s.LastExecutionAt = &completed
	}

	if r.DryRun {
		s.DryRunExecutions++
		return
	}
	s.TotalRecordsProcessed += r.RecordsProcessed
	s.TotalRecordsDeleted += r.RecordsDeleted
	s.TotalRecordsArchived += r.RecordsArchived
	s.TotalRecordsFailed += r.RecordsFailed
	s.TotalDataVolume += r.DataVolume
}

// ReplayStatistics re-derives statistics from an execution ledger. The
// result must equal the statistics accumulated incrementally.
func ReplayStatistics(records []ExecutionRecord) Statistics {
	var s Statistics
	for _, r := range records {
		s.Apply(r)
	}
	return s
}

// Recent returns at most limit records from the end of the ledger.
func Recent(records []ExecutionRecord, limit int) []ExecutionRecord {
	if limit <= 0 || limit >= len(records) {
		return records
	}
	return records[len(records)-limit:]
}
