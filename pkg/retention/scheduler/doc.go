// Package scheduler drives the retention engine on a cron schedule.
//
// Each cron tick calls Runner.RunScheduledPolicies with the current time.
// The engine decides which policies are due, so a missed or skipped tick
// only delays dispositions: the next tick picks up everything whose
// NextRun has passed.
//
//	s := scheduler.New(eng, scheduler.ConfigFrom(cfg))
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Stop()
package scheduler
