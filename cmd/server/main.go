// Command server runs the bill tracking and assignment API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dwatkins/billtrack/internal/config"
	"github.com/dwatkins/billtrack/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(logger.Options{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogPretty,
	})
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_assigned_bills", cfg.Assignment.MaxAssignedBills)

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		_ = db.Close()
		return err
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}
