package utils

import (
	"context"
	"testing"
	"time"
)

func TestRedisConfig_Normalized(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.normalized()
	if cfg.PoolSize != 20 {
		t.Fatalf("unexpected pool size default: %d", cfg.PoolSize)
	}
	if cfg.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected ping timeout default: %v", cfg.PingTimeout)
	}
}

func TestAcquireConcurrencyCap_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireConcurrencyCap(ctx, nil, "k", 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseConcurrencyCap(ctx, nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestConcurrencyScriptsInitialized(t *testing.T) {
	if capAcquireScript == nil || capReleaseScript == nil {
		t.Fatalf("expected cap scripts to be initialized")
	}
}
