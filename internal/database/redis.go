package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

var Redis *redis.Client

// ConnectRedis opens the client used by the live broker. An empty address
// leaves Redis nil so callers fall back to the in-process hub.
func ConnectRedis(ctx context.Context, addr, password string) error {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("unable to ping redis: %w", err)
	}

	Redis = client
	logger.Info().Str("addr", addr).Msg("connected to Redis")
	return nil
}

func CloseRedis() {
	if Redis != nil {
		_ = Redis.Close()
	}
}
