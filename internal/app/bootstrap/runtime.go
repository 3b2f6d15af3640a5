// Package bootstrap turns configuration into the live collaborators the API
// binary serves.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/triage-concierge/internal/config"
	"github.com/wolfman30/triage-concierge/internal/session"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects the booking ledger pool. An empty URL returns
// nil and the in-memory ledger is used instead.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(pingCtx, databaseURL)
	if err != nil {
		logger.Warn("postgres pool unavailable", "error", err)
		return nil
	}
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildArchiveDB opens the database/sql handle the conversation archive
// writes through. An empty URL disables archiving.
func BuildArchiveDB(databaseURL string, logger *logging.Logger) *sql.DB {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Warn("archive database unavailable", "error", err)
		return nil
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db
}

// BuildSessionStore selects the durable session cache named by
// SESSION_BACKEND.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, dynamoClient *dynamodb.Client, logger *logging.Logger) (session.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.SessionBackend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis session backend requires REDIS_ADDR")
		}
		logger.Info("session cache: redis", "ttl", cfg.SessionTTL.String())
		return session.NewRedisStore(redisClient, cfg.SessionTTL, nil), nil
	case "dynamodb":
		if dynamoClient == nil {
			return nil, fmt.Errorf("bootstrap: dynamodb session backend requires an AWS client")
		}
		logger.Info("session cache: dynamodb", "table", cfg.SessionTable)
		return session.NewDynamoStore(dynamoClient, cfg.SessionTable, cfg.SessionTTL, logger), nil
	case "memory", "":
		logger.Warn("session cache: memory; conversations will not survive restarts")
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}
