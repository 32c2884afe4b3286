package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/svchk12/agnet-que/internal/agent"
	"github.com/svchk12/agnet-que/internal/api"
	"github.com/svchk12/agnet-que/internal/api/handler"
	"github.com/svchk12/agnet-que/internal/cache"
	"github.com/svchk12/agnet-que/internal/config"
	"github.com/svchk12/agnet-que/internal/extract"
	"github.com/svchk12/agnet-que/internal/jobs"
	"github.com/svchk12/agnet-que/internal/logger"
	"github.com/svchk12/agnet-que/internal/repository"
	"github.com/svchk12/agnet-que/internal/service"
	"github.com/svchk12/agnet-que/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	jobRepo := repository.NewJobRepository(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	statusStore := cache.NewStatusStore(rdb, cfg.Redis.TTL)
	if err := statusStore.Ping(context.Background()); err != nil {
		// The cache is advisory; status reads fall back to the database.
		log.WithError(err).Warn("Status cache unreachable, continuing without it")
	}

	uploads, err := storage.NewUploadStore(cfg.Uploads.Dir)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload store")
	}

	extractor := extract.NewDispatcher()
	agentClient := agent.NewClient(&agent.Config{
		BaseURL: cfg.Agent.BaseURL,
		AppName: cfg.Agent.AppName,
		UserID:  cfg.Agent.UserID,
		Timeout: cfg.Agent.Timeout,
	})

	processor := service.NewProcessor(jobRepo, statusStore, extractor, agentClient, uploads, log)

	manager, err := jobs.NewManager(&cfg.Queue, processor, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize job queue")
	}
	manager.StartWorkers()

	statusReader := service.NewStatusReader(jobRepo, statusStore, log)
	jobHandler := handler.NewJobHandler(jobRepo, uploads, manager, statusReader, cfg.Stream.Interval)

	router := api.SetupRouter(jobHandler, cfg, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}
