package utils

import (
	"context"
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 25 || got.MaxIdleConns != 25 {
		t.Fatalf("conn defaults: %+v", got)
	}
	if got.ConnMaxLifetime != 30*time.Minute || got.ConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("lifetime defaults: %+v", got)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("ping timeout default: %v", got.PingTimeout)
	}

	// Explicit values survive.
	got = PostgresPoolConfig{MaxOpenConns: 3, PingTimeout: time.Second}.withDefaults()
	if got.MaxOpenConns != 3 || got.PingTimeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", got)
	}
}

func TestOpenPostgresRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "no-such-driver", "dsn", PostgresPoolConfig{}); err == nil {
		t.Fatalf("expected error for unregistered driver")
	}
}
