package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"quel-catalog-server/modules/common/config"
)

const (
	dialTimeout = 10 * time.Second
	pingTimeout = 10 * time.Second
	// ioTimeout must stay above the worker's BRPOP wait.
	ioTimeout = 30 * time.Second
)

// Connect - Redis 연결 후 PING으로 확인
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := clientOptions(cfg)
	log.Printf("🔌 Connecting to Redis: %s (TLS: %v)", opts.Addr, opts.TLSConfig != nil)

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	log.Println("✅ Redis connected")
	return rdb, nil
}

func clientOptions(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
	if cfg.RedisUseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         cfg.RedisHost,
			InsecureSkipVerify: cfg.RedisTLSSkipVerify,
		}
	}
	return opts
}
