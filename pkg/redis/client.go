package redis

import (
	"github.com/redis/go-redis/v9"

	"mailpipe/pkg/config"
)

// NewClient builds the shared redis client (dedup locks, worker caches).
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
