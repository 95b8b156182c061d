package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// newRedisClient connects to Redis, or returns nil when it is unreachable.
// The rest of the stack treats a nil client as "run degraded in memory".
func newRedisClient(log *logger.Logger, addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, running without persistence", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	log.Info("redis connected", "addr", addr)
	return rdb
}
