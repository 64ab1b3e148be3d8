package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/guardkit/guard/pkg/guard"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Outcome is what a single job run settled to.
type Outcome = guard.Result[struct{}]

// CronJobID identifies a cron job.
type CronJobID = cron.EntryID

// TickerJobID identifies a ticker job.
type TickerJobID int

// OverlapPolicy decides what happens when a job fires while still running.
type OverlapPolicy int

const (
	// AllowOverlap runs executions concurrently (default).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops an execution while the previous one runs.
	SkipIfRunning
	// DelayIfRunning waits for the previous execution to finish.
	DelayIfRunning
)

// JobOptions configures a job.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
}

type jobWrapper struct {
	job     JobFunc
	options JobOptions
	running sync.Mutex
}

type tickerJob struct {
	id      TickerJobID
	cancel  context.CancelFunc
	wrapper *jobWrapper
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, kvAttrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	attrs := append([]slog.Attr{slog.Any("error", err)}, kvAttrs(keysAndValues)...)
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func kvAttrs(kv []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, kv[i+1]))
	}
	return attrs
}

// Scheduler runs periodic jobs. Every execution goes through guard.Run, so a
// job that returns an error or panics settles to a failed Outcome instead of
// taking the process down.
type Scheduler struct {
	cron         *cron.Cron
	logger       *slog.Logger
	hooks        JobHooks
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	tickerJobs   map[TickerJobID]*tickerJob
	nextTickerID TickerJobID
	mu           sync.Mutex
	stopOnce     sync.Once
	startOnce    sync.Once
}

// JobHooks are optional observers of job executions.
type JobHooks struct {
	OnJobStart  func(jobName string)
	OnJobFinish func(jobName string, duration time.Duration, res Outcome)
}

// Config configures a Scheduler.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
}

// New creates a scheduler bound to a background context.
func New(cfg Config) *Scheduler {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext creates a scheduler that stops when parentCtx is done.
func NewWithContext(parentCtx context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Accept both 5-field and 6-field (leading seconds) specs.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{logger: logger.With("component", "cron")}),
		),
		logger:       logger,
		hooks:        cfg.JobHooks,
		ctx:          ctx,
		cancel:       cancel,
		tickerJobs:   make(map[TickerJobID]*tickerJob),
		nextTickerID: 1,
	}
}

// AddCronJob schedules job with default options. Examples:
//   - "*/30 * * * *" every 30 minutes
//   - "0 */5 * * * *" every 5 minutes, at second 0
//   - "@every 1m"
func (s *Scheduler) AddCronJob(schedule string, job JobFunc) (CronJobID, error) {
	return s.AddCronJobWithOptions(schedule, job, JobOptions{})
}

// AddCronJobWithOptions schedules job on a cron spec. An unparsable spec is
// a VALIDATION guard error.
func (s *Scheduler) AddCronJobWithOptions(schedule string, job JobFunc, opts JobOptions) (CronJobID, error) {
	wrapper := &jobWrapper{job: job, options: opts}

	id, err := s.cron.AddFunc(schedule, func() { s.runJobWrapper(s.ctx, wrapper) })
	if err != nil {
		ge := guard.New("invalid cron schedule",
			guard.WithCode(guard.CodeValidation),
			guard.WithCause(err),
			guard.WithMetaKV("schedule", schedule),
			guard.WithMetaKV("job", opts.Name),
		)
		s.logger.Error("failed to add cron job", slog.Any("error", ge))
		return 0, ge
	}

	s.logger.Info("cron job added", "schedule", schedule, "name", opts.Name, "overlap_policy", opts.OverlapPolicy, "id", id)
	return id, nil
}

// AddTickerJob schedules job at a fixed interval with default options.
func (s *Scheduler) AddTickerJob(interval time.Duration, job JobFunc) TickerJobID {
	return s.AddTickerJobWithOptions(interval, job, JobOptions{})
}

// AddTickerJobWithOptions schedules job at a fixed interval.
func (s *Scheduler) AddTickerJobWithOptions(interval time.Duration, job JobFunc, opts JobOptions) TickerJobID {
	wrapper := &jobWrapper{job: job, options: opts}

	s.mu.Lock()
	id := s.nextTickerID
	s.nextTickerID++
	ctx, cancel := context.WithCancel(s.ctx)
	s.tickerJobs[id] = &tickerJob{id: id, cancel: cancel, wrapper: wrapper}
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		defer cancel()

		for {
			select {
			case <-ticker.C:
				s.runJobWrapper(ctx, wrapper)
			case <-ctx.Done():
				s.logger.Debug("ticker job stopped", "name", opts.Name, "id", id)
				return
			}
		}
	}()

	s.logger.Info("ticker job added", "interval", interval, "name", opts.Name, "overlap_policy", opts.OverlapPolicy, "id", id)
	return id
}

// RemoveCronJob removes a cron job.
func (s *Scheduler) RemoveCronJob(id CronJobID) {
	s.cron.Remove(id)
	s.logger.Info("cron job removed", "id", id)
}

// RemoveTickerJob removes a ticker job, reporting whether it existed.
func (s *Scheduler) RemoveTickerJob(id TickerJobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.tickerJobs[id]
	if !ok {
		return false
	}
	job.cancel()
	delete(s.tickerJobs, id)

	s.logger.Info("ticker job removed", "id", id, "name", job.wrapper.options.Name)
	return true
}

// RunNow executes job once on the caller's goroutine with the same guarding,
// hooks and logging as a scheduled run.
func (s *Scheduler) RunNow(ctx context.Context, job JobFunc, opts JobOptions) Outcome {
	return s.runJobWrapper(ctx, &jobWrapper{job: job, options: opts})
}

// Start starts the scheduler. Extra calls are no-ops.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.cron.Start()

		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	if !s.IsRunning() {
		return
	}
	s.logger.Info("stopping scheduler")
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext is Stop bounded by ctx. Shutdown still completes when ctx
// expires first, but ctx.Err() is returned.
func (s *Scheduler) StopContext(ctx context.Context) error {
	if !s.IsRunning() {
		return nil
	}

	s.logger.Info("stopping scheduler with deadline")
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded, waiting for jobs")
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()

	s.mu.Lock()
	for _, job := range s.tickerJobs {
		job.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runJobWrapper(ctx context.Context, wrapper *jobWrapper) Outcome {
	jobName := wrapper.options.Name
	if jobName == "" {
		jobName = "unnamed"
	}

	switch wrapper.options.OverlapPolicy {
	case SkipIfRunning:
		if !wrapper.running.TryLock() {
			s.logger.Debug("skipping job execution, already running", "name", jobName)
			return guard.Failure[struct{}](guard.New("job already running",
				guard.WithMetaKV("job", jobName),
			))
		}
		defer wrapper.running.Unlock()
	case DelayIfRunning:
		wrapper.running.Lock()
		defer wrapper.running.Unlock()
	}

	if s.hooks.OnJobStart != nil {
		s.hooks.OnJobStart(jobName)
	}

	if wrapper.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wrapper.options.Timeout)
		defer cancel()
	}

	start := time.Now()
	res := guard.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, wrapper.job(ctx)
	})
	duration := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(jobName, duration, res)
	}

	if res.Ok {
		s.logger.Debug("job completed", "name", jobName, "duration", duration)
	} else {
		s.logger.Error("job failed", slog.String("name", jobName), slog.Duration("duration", duration), slog.Any("error", res.Err))
	}
	return res
}

// IsRunning reports whether the scheduler has not been stopped.
func (s *Scheduler) IsRunning() bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
		return true
	}
}
