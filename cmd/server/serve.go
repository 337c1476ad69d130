package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/cesargomez89/cuesplit/internal/app"
	"github.com/cesargomez89/cuesplit/internal/charset"
	"github.com/cesargomez89/cuesplit/internal/command"
	"github.com/cesargomez89/cuesplit/internal/config"
	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/deps"
	"github.com/cesargomez89/cuesplit/internal/domain"
	httpapp "github.com/cesargomez89/cuesplit/internal/http"
	"github.com/cesargomez89/cuesplit/internal/logger"
	"github.com/cesargomez89/cuesplit/internal/pipeline"
	"github.com/cesargomez89/cuesplit/internal/storage"
	"github.com/cesargomez89/cuesplit/internal/store"
	"github.com/cesargomez89/cuesplit/internal/worker"
)

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := storage.EnsureDir(cfg.LogDir); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	// Single instance per log directory
	lock := flock.New(filepath.Join(cfg.LogDir, constants.LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance is already using %s", cfg.LogDir)
	}
	defer lock.Unlock()

	for _, s := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if !s.Available {
			appLogger.Warn("External tool unavailable", "name", s.Name, "command", s.Command, "detail", s.Detail, "optional", s.Optional)
		}
	}

	// Initialize job store, optionally backed by SQLite
	var persist store.Persister
	if cfg.DBPath != "" {
		db, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("init db: %w", err)
		}
		defer db.Close()
		persist = db
	}
	jobStore := store.New(persist, appLogger)
	requeue, err := jobStore.Recover()
	if err != nil {
		return err
	}

	// Initialize pipeline
	format, err := domain.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	encoder, err := pipeline.NewEncoder(format)
	if err != nil {
		return err
	}
	runner := command.ExecRunner{}
	tagger, err := pipeline.NewTagger(cfg.Tagger, runner, cfg.CuetagBin)
	if err != nil {
		return err
	}
	processor := pipeline.NewProcessor(pipeline.Config{
		Runner:      runner,
		Encoder:     encoder,
		Tagger:      tagger,
		Fixer:       charset.NewFixer(runner, cfg.DetectorBin),
		FFmpegBin:   cfg.FFmpegBin,
		ShnsplitBin: cfg.ShnsplitBin,
	})

	// Initialize services and workers
	orchestrator := app.NewOrchestrator(processor, cfg.PairThreads, cfg.Cleanup(), appLogger)
	jobService := app.NewJobService(jobStore, orchestrator, cfg.LogDir, appLogger)
	pool := worker.NewPool(cfg.Threads, jobService.Handle, appLogger)
	jobService.Queue = pool
	if err := jobService.Resume(requeue); err != nil {
		return err
	}
	pool.Start()
	defer pool.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapp.NewRouter(httpapp.NewHandler(jobService, appLogger)),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server listening",
			"addr", srv.Addr,
			"threads", cfg.Threads,
			"pair_threads", cfg.PairThreads,
			"format", cfg.Format,
			"cleanup", cfg.Cleanup(),
			"log_dir", cfg.LogDir,
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Running jobs finish before the deferred pool.Stop returns.
	appLogger.Info("Waiting for running jobs", "pending", pool.Pending())
	return nil
}
