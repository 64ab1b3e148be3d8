// Package scheduler runs background jobs on cron schedules or fixed intervals.
//
// Features:
//   - Cron-style scheduling using github.com/robfig/cron/v3; specs may carry
//     an optional leading seconds field
//   - Interval jobs on time.Ticker
//   - Overlap policies (Allow/Skip/Delay) and per-job timeouts
//   - Graceful shutdown, optionally bounded with StopContext
//   - Guarded execution: every run settles to a guard.Result, so errors and
//     panics are normalized, logged and handed to hooks
//
// Basic usage:
//
//	s := scheduler.New(scheduler.Config{Logger: logger})
//
//	_, err := s.AddCronJobWithOptions("@every 1m", func(ctx context.Context) error {
//		return client.GetJSON(ctx, probeURL, &status)
//	}, scheduler.JobOptions{Name: "probe", Timeout: 5 * time.Second, OverlapPolicy: scheduler.SkipIfRunning})
//
//	s.Start()
//	defer s.Stop()
//
// Hooks observe every run:
//
//	hooks := scheduler.JobHooks{
//		OnJobFinish: func(name string, d time.Duration, res scheduler.Outcome) {
//			if !res.Ok {
//				_, _ = journal.Record(ctx, name, res.Err)
//			}
//		},
//	}
package scheduler
