package database

import (
	"context"
	"fmt"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects and pings once. Unlike the Postgres helper it fails hard
// on a bad ping, since the publisher has nothing to fall back to.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}
