package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/retention/internal/activity"
	"github.com/matthewbaird/retention/internal/assessment"
	"github.com/matthewbaird/retention/internal/config"
	"github.com/matthewbaird/retention/internal/event"
	"github.com/matthewbaird/retention/internal/eventbus"
	"github.com/matthewbaird/retention/internal/handler"
	"github.com/matthewbaird/retention/internal/intervention"
	"github.com/matthewbaird/retention/internal/logger"
	"github.com/matthewbaird/retention/internal/policy"
	"github.com/matthewbaird/retention/internal/server"
	"github.com/matthewbaird/retention/internal/snapshot"
	"github.com/matthewbaird/retention/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	scoring, err := policy.Load(cfg.ScoringPolicyFile)
	if err != nil {
		return err
	}

	repo, acts, closeDB, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	bus := eventbus.New(cfg.EventBufferSize, log)
	recorder := event.NewActivityRecorder(acts, bus)
	store := snapshot.NewStore()
	runner := snapshot.NewRunner(store, assessment.New(scoring, cfg.AssessmentWorkers), recorder, log)
	svc := intervention.NewService(repo, store,
		intervention.WithRecorder(recorder),
		intervention.WithLogger(log),
	)

	broadcaster := eventbus.NewBroadcaster(0)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("feed", broadcaster)
	if cfg.AutoAssess {
		bus.Subscribe("assess_sync", worker.NewAssessSyncWorker(runner, log))
	}
	bus.Start(ctx)
	defer bus.Stop()

	return server.Run(ctx, server.Config{
		Port:   cfg.Port,
		Logger: log,
		Deps: handler.Deps{
			Runner:        runner,
			Interventions: svc,
			Activity:      acts,
			Feed:          broadcaster,
			AssistantTopN: cfg.AssistantTopN,
		},
	})
}

// openStores returns the intervention repository and activity store for the
// configured backend, plus a func that releases them.
func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (intervention.Repository, activity.Store, func(), error) {
	if cfg.InterventionStore == config.StoreMemory {
		log.Info("using in-memory stores")
		return intervention.NewMemoryStore(), activity.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	repo := intervention.NewSQLiteStore(db)
	if err := repo.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	acts := activity.NewSQLiteStore(db)
	if err := acts.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	log.Info("database ready", "store", cfg.InterventionStore)
	return repo, acts, func() { db.Close() }, nil
}
