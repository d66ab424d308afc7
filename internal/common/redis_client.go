package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"infinite-experiment/dispatchboard/internal/config"
	"infinite-experiment/dispatchboard/internal/logging"
)

func NewRedisClient(cfg *config.Config) *redis.Client {
	redisDB := 0 // Default DB

	addr := cfg.RedisAddr()
	logging.Info("Initializing Redis client", "addr", addr, "db", redisDB)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.RedisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		logging.Error("Failed to ping Redis", "error", err)
		return client // Still return the client, connection pool will try to reconnect
	}

	logging.Info("Successfully connected to Redis")
	return client

}
