package utils

import (
	"context"
	"log"
	"time"

	"cliniq/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client.
	CacheClient *redis.Client
	// DraftCacheClient is the dedicated client for booking draft storage.
	DraftCacheClient *redis.Client
	// LockCacheClient is the dedicated client for slot locks and idempotency keys.
	LockCacheClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// InitRedis initializes all Redis clients.
func InitRedis() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	DraftCacheClient = newRedisClient(config.AppConfig.RedisDraftDB)
	LockCacheClient = newRedisClient(config.AppConfig.RedisLockDB)
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	}
	return CacheClient
}

// GetDraftCacheClient returns the Redis client for booking draft storage.
func GetDraftCacheClient() *redis.Client {
	if DraftCacheClient == nil {
		DraftCacheClient = newRedisClient(config.AppConfig.RedisDraftDB)
	}
	return DraftCacheClient
}

// GetLockCacheClient returns the Redis client for slot locks.
func GetLockCacheClient() *redis.Client {
	if LockCacheClient == nil {
		LockCacheClient = newRedisClient(config.AppConfig.RedisLockDB)
	}
	return LockCacheClient
}
