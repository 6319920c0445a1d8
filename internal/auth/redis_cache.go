package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-checkin/internal/logger"
)

// InitializeSessionRedis connects to Redis for session storage and tests the connection
func InitializeSessionRedis(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Error("AUTH", fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
		redisClient.Close()
		return nil, err
	}

	log.Info("AUTH", fmt.Sprintf("Session store connected to Redis at %s (DB %d)", addr, db))
	return redisClient, nil
}
