package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfig_Normalized(t *testing.T) {
	def := PostgresPoolConfig{}.normalized()
	if def.MaxOpenConns != 20 || def.MaxIdleConns != 20 {
		t.Fatalf("unexpected pool defaults: %+v", def)
	}
	if def.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", def.PingTimeout)
	}

	custom := PostgresPoolConfig{MaxOpenConns: 5}.normalized()
	if custom.MaxIdleConns != 5 {
		t.Fatalf("idle pool should follow the open cap, got %d", custom.MaxIdleConns)
	}
}
