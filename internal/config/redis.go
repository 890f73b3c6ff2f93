package config

// Redis backs the auth rate limiter and the video listing cache. If the
// server cannot be reached at startup NewRedisClient returns nil and callers
// fall back to in-process limiting and no caching.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings. Addr takes REDIS_HOST:REDIS_PORT
// when both are set, then REDIS_ADDR, then localhost:6379.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func loadRedisConfig(e *env) RedisConfig {
	addr := e.get("REDIS_ADDR")
	if host, port := e.get("REDIS_HOST"), e.get("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	return RedisConfig{
		Addr:     addr,
		Password: e.get("REDIS_PASSWORD"),
		DB:       e.integer("REDIS_DB", 0),
		TLS:      e.boolean("REDIS_TLS", false),
	}
}

// NewRedisClient dials Redis and pings it with a short timeout. The returned
// client is nil when the server is unreachable.
func NewRedisClient(ctx context.Context, cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
