package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reign/internal/admin"
	"reign/internal/auth"
	"reign/internal/config"
	"reign/internal/db"
	"reign/internal/docsync"
	httpx "reign/internal/http"
	"reign/internal/jobs"
	"reign/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reignd:", err)
		os.Exit(1)
	}
}

type backend struct {
	users auth.Users
	docs  docsync.Repository
	stats admin.StatsStore
	queue jobs.Queue
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	be, err := openBackend(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	jobMetrics, err := jobs.NewMetrics(reg)
	if err != nil {
		return err
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	r, err := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Logger:   log,
		JWT:      jwtSvc,
		Users:    be.users,
		Docs:     &docsync.Service{Repo: be.docs, Jobs: be.queue, Logger: log},
		Admin:    &admin.Service{Users: be.users, Docs: be.docs, Stats: be.stats},
		Registry: reg,
	})
	if err != nil {
		return err
	}

	worker := &jobs.Worker{
		ID:       "worker-1",
		Queue:    be.queue,
		Docs:     be.docs,
		Stats:    be.stats,
		Keep:     cfg.RevisionKeep,
		Interval: cfg.WorkerInterval,
		Logger:   log,
		Metrics:  jobMetrics,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openBackend(cfg config.Config, log *zap.Logger) (backend, error) {
	if cfg.DatabaseURL == config.MemoryDatabase {
		log.Warn("using in-memory storage, data is lost on exit")
		return backend{
			users: auth.NewMemoryUsers(),
			docs:  docsync.NewMemoryRepo(),
			stats: admin.NewMemoryStats(),
			queue: jobs.NewMemoryQueue(nil),
		}, nil
	}

	gdb, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return backend{}, err
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return backend{}, fmt.Errorf("migrate: %w", err)
	}
	return backend{
		users: &auth.GormUsers{DB: gdb},
		docs:  &docsync.GormRepo{DB: gdb},
		stats: &admin.GormStats{DB: gdb},
		queue: &jobs.Repo{DB: gdb},
	}, nil
}
