package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dwatkins/billtrack/internal/assignment"
	"github.com/dwatkins/billtrack/internal/auth"
	"github.com/dwatkins/billtrack/internal/config"
	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/domain/workflow"
	"github.com/dwatkins/billtrack/internal/platform/metrics"
	"github.com/dwatkins/billtrack/internal/platform/postgres"
	"github.com/dwatkins/billtrack/internal/store"
)

// application holds the wired dependencies of the running service.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Metrics

	userStore store.UserStore
	billStore store.BillStore

	cache       *assignment.CapacityCache
	assignments assignment.Service
	tokens      auth.TokenService

	sweeperCancel context.CancelFunc
}

// newApplication constructs the dependency graph. The database handle
// must already be open; the application takes ownership of closing it.
func newApplication(
	cfg *config.Config,
	log *slog.Logger,
	db *sql.DB,
) (*application, error) {
	policy, err := buildPolicy(cfg.Assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow policy: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	m := metrics.New()

	userStore := postgres.NewPostgresUserStore(db, log)
	billStore := postgres.NewPostgresBillStore(db, log)

	cache := assignment.NewCapacityCache(
		time.Duration(cfg.Assignment.CacheTTLSeconds) * time.Second)

	assignments, err := assignment.NewService(assignment.ServiceConfig{
		Bills:       assignment.NewBillRepository(billStore),
		Users:       assignment.NewUserRepository(userStore),
		Tx:          assignment.NewSQLTxRunner(db),
		Cache:       cache,
		Policy:      policy,
		Metrics:     m,
		Logger:      log,
		MaxAttempts: cfg.Assignment.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}

	app := &application{
		config:      cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		userStore:   userStore,
		billStore:   billStore,
		cache:       cache,
		assignments: assignments,
		tokens:      tokens,
	}

	// Expired capacity views are swept in the background for the whole
	// life of the application.
	sweepCtx, cancel := context.WithCancel(context.Background())
	app.sweeperCancel = cancel
	cache.StartSweeper(
		sweepCtx,
		time.Duration(cfg.Assignment.CacheSweepIntervalSeconds)*time.Second,
		log,
	)

	return app, nil
}

// buildPolicy converts the assignment config into a workflow policy,
// parsing any stage-set overrides.
func buildPolicy(cfg config.AssignmentConfig) (*workflow.Policy, error) {
	policyCfg := workflow.PolicyConfig{
		MaxAssigned: cfg.MaxAssignedBills,
	}

	for _, s := range cfg.ActiveStages {
		stage, err := domain.ParseBillStage(s)
		if err != nil {
			return nil, fmt.Errorf("invalid active stage %q: %w", s, err)
		}
		policyCfg.ActiveStages = append(policyCfg.ActiveStages, stage)
	}

	for _, s := range cfg.AssignableStages {
		stage, err := domain.ParseBillStage(s)
		if err != nil {
			return nil, fmt.Errorf("invalid assignable stage %q: %w", s, err)
		}
		policyCfg.AssignableStages = append(policyCfg.AssignableStages, stage)
	}

	return workflow.NewPolicy(policyCfg)
}

// cleanup releases the application's resources. Called after the HTTP
// server has drained.
func (app *application) cleanup() {
	if app.sweeperCancel != nil {
		app.sweeperCancel()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
