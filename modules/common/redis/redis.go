package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/config"
)

const pingTimeout = 10 * time.Second

// options - 설정값으로 go-redis 옵션 생성
func options(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if cfg.RedisUseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.RedisHost,
		}
	}
	return opts
}

// Connect - 리마인더 큐용 Redis 연결 (ping 실패 시 nil)
func Connect(ctx context.Context, cfg *config.Config) *redis.Client {
	log.Printf("🔌 [Redis] Connecting to %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)

	rdb := redis.NewClient(options(cfg))
	if err := Ping(ctx, rdb); err != nil {
		log.Printf("❌ [Redis] %v", err)
		rdb.Close()
		return nil
	}

	log.Println("✅ [Redis] Connected, queue worker enabled")
	return rdb
}

// Ping - 연결 확인
func Ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
