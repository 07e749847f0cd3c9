// Command server runs the hybrid memory backend: HTTP API, ingestion
// pipeline, and the embedding backfill scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/container"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf(context.Background(), "failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Setup(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx := context.Background()

	c, err := container.Build(cfg)
	if err != nil {
		logger.Errorf(ctx, "failed to assemble application: %v", err)
		os.Exit(1)
	}

	err = c.Invoke(func(router *gin.Engine, ingest interfaces.IngestService) error {
		return run(ctx, cfg, router, ingest)
	})
	if err != nil {
		logger.Errorf(ctx, "server exited with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, router *gin.Engine, ingest interfaces.IngestService) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Memory.BackfillSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := ingest.BackfillEmbeddings(jobCtx)
		if err != nil {
			logger.Warnf(jobCtx, "embedding backfill pass failed: %v", err)
			return
		}
		if n > 0 {
			logger.Infof(jobCtx, "embedding backfill attached %d embeddings", n)
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "memory backend listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		logger.Infof(ctx, "received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
