package database

import (
	"context"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// NewRedisClient parses redisURI and applies the pool settings used across the service.
func NewRedisClient(redisURI string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	return redis.NewClient(opt), nil
}

// ConnectRedis connects to Redis and stores the client in RedisClient.
func ConnectRedis(redisURI string) error {
	client, err := NewRedisClient(redisURI)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	RedisClient = client
	logger.Log.Info("✅ Connected to Redis")
	return nil
}

// DisconnectRedis closes the Redis connection
func DisconnectRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
