package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/triage-concierge/internal/config"
	"github.com/wolfman30/triage-concierge/internal/observability/metrics"
	"github.com/wolfman30/triage-concierge/internal/session"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if c := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true); c != nil {
		t.Fatalf("expected nil client when redis is down")
	}
	if c := BuildRedisClient(context.Background(), &appconfig.Config{}, logger, false); c != nil {
		t.Fatalf("expected nil client without address")
	}
}

func TestBuildSessionStoreSelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")
	redisClient := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, false)
	t.Cleanup(func() { _ = redisClient.Close() })

	store, err := BuildSessionStore(&appconfig.Config{SessionBackend: "redis", SessionTTL: time.Hour}, redisClient, nil, logger)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	if _, ok := store.(*session.RedisStore); !ok {
		t.Fatalf("expected RedisStore, got %T", store)
	}

	store, err = BuildSessionStore(&appconfig.Config{SessionBackend: "memory"}, nil, nil, logger)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}

	if _, err := BuildSessionStore(&appconfig.Config{SessionBackend: "redis"}, nil, nil, logger); err == nil {
		t.Fatalf("expected error for redis without client")
	}
	if _, err := BuildSessionStore(&appconfig.Config{SessionBackend: "dynamodb"}, nil, nil, logger); err == nil {
		t.Fatalf("expected error for dynamodb without client")
	}
	if _, err := BuildSessionStore(&appconfig.Config{SessionBackend: "etcd"}, nil, nil, logger); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
	if db := BuildArchiveDB(" ", logging.New("error")); db != nil {
		t.Fatalf("expected nil archive db for empty URL")
	}
}

func TestBuildConversationDepsDefaults(t *testing.T) {
	cfg := &appconfig.Config{
		BackendBaseURL:      "http://backend.invalid",
		BackendTimeout:      time.Second,
		PhoneRegion:         "IN",
		SmartWelcomeTimeout: time.Second,
		EmergencyNumber:     "112",
	}
	m := metrics.NewConversationMetrics(prometheus.NewRegistry())

	deps, err := BuildConversationDeps(cfg, Infra{Sessions: session.NewMemoryStore()}, m, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.Engine == nil || deps.Gate == nil || deps.Booking == nil {
		t.Fatalf("expected core components to be wired")
	}
	if deps.Archive != nil || deps.Export != nil {
		t.Fatalf("expected archive and export disabled without infra")
	}

	if _, err := BuildConversationDeps(cfg, Infra{}, m, nil); err == nil {
		t.Fatalf("expected error without session store")
	}
	if _, err := BuildConversationDeps(&appconfig.Config{}, Infra{Sessions: session.NewMemoryStore()}, m, nil); err == nil {
		t.Fatalf("expected error without backend url")
	}
}
