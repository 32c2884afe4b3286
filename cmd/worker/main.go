package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/svchk12/agnet-que/internal/agent"
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
		log.WithError(err).Fatal("Status cache unreachable")
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

	log.WithField("concurrency", cfg.Queue.Concurrency).Info("Starting worker")
	if err := manager.Run(); err != nil {
		log.WithError(err).Fatal("Worker stopped")
	}
}
