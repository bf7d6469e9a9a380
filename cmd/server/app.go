package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/phrazzld/tasktracker-api/internal/notify"
	"github.com/phrazzld/tasktracker-api/internal/platform/kafka"
	"github.com/phrazzld/tasktracker-api/internal/platform/memory"
	"github.com/phrazzld/tasktracker-api/internal/platform/metrics"
	"github.com/phrazzld/tasktracker-api/internal/platform/postgres"
	"github.com/phrazzld/tasktracker-api/internal/platform/redislock"
	"github.com/phrazzld/tasktracker-api/internal/platform/sqlite"
	"github.com/phrazzld/tasktracker-api/internal/service"
	"github.com/phrazzld/tasktracker-api/internal/service/auth"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/phrazzld/tasktracker-api/internal/sweep"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	now    func() time.Time

	taskStore   store.TaskStore
	taskService service.TaskService
	jwtService  auth.JWTService

	// notifier is the transport; dispatcher queues in front of it unless
	// directNotify is set.
	notifier     notify.Notifier
	dispatcher   *notify.Dispatcher
	directNotify bool

	sweeper   *sweep.Sweeper
	scheduler *sweep.Scheduler

	registry *prometheus.Registry
	metrics  *metrics.PromMetrics

	closers []func() error
}

type appOption func(*application)

// withClock replaces time.Now for the task service and the sweeper.
func withClock(now func() time.Time) appOption {
	return func(app *application) { app.now = now }
}

// withNotifier replaces the configured notification transport.
func withNotifier(n notify.Notifier) appOption {
	return func(app *application) { app.notifier = n }
}

// withDirectNotify makes the sweeper call the transport synchronously
// instead of queueing, so one-shot runs do not exit with undelivered
// notifications.
func withDirectNotify() appOption {
	return func(app *application) { app.directNotify = true }
}

// newApplication creates a new application instance with all dependencies initialized.
// Resources opened along the way are released by cleanup, also on error.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.init(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	return app, nil
}

func (app *application) init(ctx context.Context) error {
	cfg := app.config

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewPromMetrics(app.registry)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	if err := app.openTaskStore(ctx); err != nil {
		return err
	}

	app.taskService, err = service.NewTaskService(app.taskStore, service.TaskServiceConfig{
		DefaultExpiryHours: cfg.Task.DefaultExpiryHours,
		MaxExpiryHours:     cfg.Task.MaxExpiryHours,
	}, app.logger, service.WithClock(app.now))
	if err != nil {
		return fmt.Errorf("failed to initialize task service: %w", err)
	}

	if err := app.setupNotifier(); err != nil {
		return err
	}

	var sweepNotifier notify.Notifier = app.dispatcher
	if app.directNotify {
		sweepNotifier = app.notifier
	}
	app.sweeper, err = sweep.NewSweeper(app.taskStore, sweepNotifier, app.logger,
		sweep.WithClock(app.now),
		sweep.WithMetrics(app.metrics),
		sweep.WithPageSize(cfg.Sweep.PageSize))
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}

	locker, err := app.buildLocker(ctx)
	if err != nil {
		return err
	}
	app.scheduler = sweep.NewScheduler(app.sweeper, locker, app.metrics, sweep.SchedulerConfig{
		Interval:   cfg.Sweep.Interval,
		Timeout:    cfg.Sweep.Timeout,
		LockTTL:    cfg.Sweep.LockTTL,
		RunOnStart: cfg.Sweep.RunOnStart,
	}, app.logger)

	return nil
}

// openTaskStore connects the backend named by database.driver.
func (app *application) openTaskStore(ctx context.Context) error {
	dbCfg := app.config.Database

	switch dbCfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, dbCfg.URL, dbCfg.MaxOpenConns)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, db.Close)
		app.taskStore = postgres.NewPostgresTaskStore(db)

	case "sqlite":
		db, err := sqlite.Open(dbCfg.URL)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sqlite handle: %w", err)
		}
		app.closers = append(app.closers, sqlDB.Close)
		app.taskStore = sqlite.NewTaskStore(db)

	case "memory":
		app.logger.Warn("using in-memory task store, tasks are lost on restart")
		app.taskStore = memory.NewTaskStore()

	default:
		return fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}

	app.logger.Info("task store ready", "driver", dbCfg.Driver)
	return nil
}

// setupNotifier builds the transport (unless injected) and the dispatcher in
// front of it.
func (app *application) setupNotifier() error {
	cfg := app.config.Notify

	if app.notifier == nil {
		switch cfg.Driver {
		case "kafka":
			client, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return err
			}
			app.closers = append(app.closers, func() error {
				client.Close()
				return nil
			})
			app.notifier = kafka.New(client, cfg.Kafka.Topic)
		case "log":
			app.notifier = notify.NewLogNotifier(app.logger)
		default:
			return fmt.Errorf("unsupported notify driver %q", cfg.Driver)
		}
	}

	dispatcherCfg := notify.DefaultDispatcherConfig()
	dispatcherCfg.QueueSize = cfg.QueueSize
	dispatcherCfg.WorkerCount = cfg.WorkerCount
	app.dispatcher = notify.NewDispatcher(app.notifier, dispatcherCfg, app.logger)
	return nil
}

// buildLocker returns a Redis lease when redis.addr is set, otherwise a
// process-local one.
func (app *application) buildLocker(ctx context.Context) (sweep.Locker, error) {
	redisCfg := app.config.Redis
	if redisCfg.Addr == "" {
		return sweep.LocalLocker{}, nil
	}

	client, err := redislock.NewClient(ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)
	app.logger.Info("distributed sweep lease enabled", "redis_addr", redisCfg.Addr)
	return redislock.New(client, ""), nil
}

// run serves HTTP, runs the sweep scheduler, and runs the notification
// dispatcher until ctx is cancelled or one of them fails.
func (app *application) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := app.newHTTPServer(app.setupRouter())
	g.Go(func() error { return app.serveHTTP(ctx, srv) })
	g.Go(func() error { return app.dispatcher.Run(ctx) })

	if app.config.Sweep.Enabled {
		g.Go(func() error { return app.scheduler.Run(ctx) })
	} else {
		app.logger.Info("expiry sweep disabled")
	}

	return g.Wait()
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("errors during cleanup", "error", err)
	}
}

// sweepOnce is the scheduled-job entry point: one sweep, then exit.
func (app *application) sweepOnce(ctx context.Context) error {
	res, ran, err := app.scheduler.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	if !ran {
		app.logger.Info("sweep not run, another instance holds the lease")
		return nil
	}
	app.logger.Info("sweep completed", res.LogAttrs()...)
	return nil
}

// runMigrations applies the embedded schema. Only postgres needs it; the
// sqlite store migrates itself on open.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		logger.Info("no migrations to run", "driver", cfg.Database.Driver)
		return nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, 1)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	return postgres.Migrate(ctx, db, logger)
}
