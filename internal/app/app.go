// Package app wires the playground service together.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guardkit/guard/internal/adapter/scheduler"
	"github.com/guardkit/guard/internal/config"
	"github.com/guardkit/guard/internal/journal"
	"github.com/guardkit/guard/internal/metrics"
	"github.com/guardkit/guard/internal/platform/httpclient"
	"github.com/guardkit/guard/internal/platform/logger"
	"github.com/guardkit/guard/internal/playground"
	"github.com/guardkit/guard/pkg/guard"
	"github.com/guardkit/guard/pkg/guard/boundary"
)

// ProbeJob is the scheduler job name and journal source of the upstream probe.
const ProbeJob = "probe"

// App wires application components.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	journal *journal.Journal
	metrics *metrics.Recorder
	client  *httpclient.Client
}

// New builds an App from cfg, opening the journal.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "guardd",
	})

	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		_ = logger.Close(log)
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		journal: j,
		metrics: metrics.New(nil),
		client:  httpclient.New(httpclient.WithLogger(log), httpclient.WithTimeout(cfg.Probe.Timeout)),
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Journal returns the failure journal.
func (a *App) Journal() *journal.Journal { return a.journal }

// Close releases the journal and log files.
func (a *App) Close() error {
	return errors.Join(a.journal.Close(), logger.Close(a.log))
}

// Router builds the HTTP handler.
//
// Every request passes through observe, which records failures attached to
// the gin context by boundaries and guarded handlers, then through the
// provider that makes JSONFallback the default for unhandled panics.
func (a *App) Router() *gin.Engine {
	if a.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(a.observe())
	r.Use(boundary.GinProvider(boundary.JSONFallback))
	r.Use(boundary.New(boundary.WithOnError(func(ctx context.Context, err *guard.Error) {
		a.log.ErrorContext(ctx, "unhandled panic", slog.Any("error", err))
	})).Gin())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	playground.New(a.client, a.journal).Register(r.Group("/v1"))
	return r
}

// observe counts every request under its route and journals the last guard
// error attached to the gin context, if any.
func (a *App) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		source := c.FullPath()
		if source == "" || source == "/metrics" || source == "/healthz" {
			return
		}

		var ge *guard.Error
		if last := c.Errors.Last(); last != nil {
			ge = guard.Normalize(last.Err)
		}
		a.metrics.Observe(source, time.Since(start), ge)
		if ge != nil {
			a.record(c.Request.Context(), source, ge)
		}
	}
}

func (a *App) record(ctx context.Context, source string, ge *guard.Error) {
	// the request may already be canceled; the entry should still land
	ctx = context.WithoutCancel(ctx)
	if _, err := a.journal.Record(ctx, source, ge); err != nil {
		a.log.Error("journal record failed", slog.String("source", source), logger.Err(err))
	}
}

// Scheduler builds the background scheduler; the upstream probe is added
// when PROBE_URL is set.
func (a *App) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	s := scheduler.NewWithContext(ctx, scheduler.Config{
		Logger: a.log,
		JobHooks: scheduler.JobHooks{
			OnJobFinish: func(name string, d time.Duration, res scheduler.Outcome) {
				a.metrics.Observe(name, d, res.Err)
				if !res.Ok {
					a.record(ctx, name, res.Err)
				}
			},
		},
	})

	if a.cfg.Probe.URL == "" {
		return s, nil
	}
	_, err := s.AddCronJobWithOptions(a.cfg.Probe.Schedule, a.Probe(a.cfg.Probe.URL), scheduler.JobOptions{
		Name:          ProbeJob,
		Timeout:       a.cfg.Probe.Timeout,
		OverlapPolicy: scheduler.SkipIfRunning,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Probe returns a job fetching url and discarding the body.
func (a *App) Probe(url string) scheduler.JobFunc {
	return func(ctx context.Context) error {
		var out any
		return a.client.GetJSON(ctx, url, &out)
	}
}

// Run serves HTTP and runs the scheduler until ctx is done.
func (a *App) Run(ctx context.Context) error {
	sched, err := a.Scheduler(ctx)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.Router(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", slog.String("addr", a.cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		sched.Stop()
		if err != nil {
			return guard.Errorf(guard.CodeInternal, "http server: %w", err)
		}
		return nil
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(srv.Shutdown(shutdownCtx), sched.StopContext(shutdownCtx))
}
