package main

import (
	"log"

	"loyalty-backend/internal/shared/utils"
)

// WorkerConfig holds all configuration for the worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

func loadWorkerConfig() *WorkerConfig {
	cfg := &WorkerConfig{
		RedisAddr:   utils.GetEnvVariable("REDIS_HOST", "localhost:6379"),
		Concurrency: utils.GetEnvInt("WORKER_CONCURRENCY", 10),
	}

	log.Printf("[Config] Redis: %s, Concurrency: %d", cfg.RedisAddr, cfg.Concurrency)

	return cfg
}
