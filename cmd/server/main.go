// Package main implements the task tracker API server. Besides serving HTTP
// it runs the periodic expiry sweep, and offers two one-shot modes:
// -migrate applies database migrations and -sweep-once runs a single sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	sweepOnce := flag.Bool("sweep-once", false, "run a single expiry sweep and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrate, *sweepOnce); err != nil {
		log.Fatalf("tasktracker: %v", err)
	}
}

func run(ctx context.Context, migrate, sweepOnce bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"notify_driver", cfg.Notify.Driver,
		"sweep_enabled", cfg.Sweep.Enabled,
		"distributed_lock", cfg.Redis.Addr != "")

	if migrate {
		return runMigrations(ctx, cfg, l)
	}

	var opts []appOption
	if sweepOnce {
		opts = append(opts, withDirectNotify())
	}

	app, err := newApplication(ctx, cfg, l, opts...)
	if err != nil {
		return err
	}
	defer app.cleanup()

	if sweepOnce {
		return app.sweepOnce(ctx)
	}
	return app.run(ctx)
}
