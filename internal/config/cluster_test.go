package config

import (
	"testing"
	"time"
)

func TestLoadClusterDefaults(t *testing.T) {
	cfg, err := LoadCluster()
	if err != nil {
		t.Fatalf("LoadCluster() error = %v", err)
	}
	if cfg.BusDriver != BusDriverPostgres {
		t.Fatalf("BusDriver = %q, want postgres", cfg.BusDriver)
	}
	if cfg.BusChannel != "gamefleet_bus" {
		t.Fatalf("BusChannel = %q", cfg.BusChannel)
	}
	if cfg.DispatchTimeout() != 2*time.Second {
		t.Fatalf("DispatchTimeout = %v, want 2s", cfg.DispatchTimeout())
	}
	if cfg.TeleportMaxAttempts != 0 || cfg.TeleportMaxDuration() != 0 {
		t.Fatalf("teleport retry should default to unbounded: %+v", cfg)
	}
}

func TestLoadClusterParseTypes(t *testing.T) {
	t.Setenv("BUS_DRIVER", "MEMORY")
	t.Setenv("DISPATCH_TIMEOUT_MS", "750")
	t.Setenv("TELEPORT_MAX_ATTEMPTS", "5")
	t.Setenv("TELEPORT_MAX_DURATION_MS", "30000")
	t.Setenv("TELEPORT_RETRY_BASE_MS", "-1")

	cfg, err := LoadCluster()
	if err != nil {
		t.Fatalf("LoadCluster() error = %v", err)
	}
	if cfg.BusDriver != BusDriverMemory {
		t.Fatalf("BusDriver = %q, want memory", cfg.BusDriver)
	}
	if cfg.DispatchTimeout() != 750*time.Millisecond {
		t.Fatalf("DispatchTimeout = %v", cfg.DispatchTimeout())
	}
	if cfg.TeleportMaxAttempts != 5 || cfg.TeleportMaxDuration() != 30*time.Second {
		t.Fatalf("unexpected teleport config: %+v", cfg)
	}
	if cfg.TeleportRetryBase() != 250*time.Millisecond {
		t.Fatalf("TeleportRetryBase = %v, want 250ms", cfg.TeleportRetryBase())
	}
}

func TestLoadClusterRejectsUnknownBus(t *testing.T) {
	t.Setenv("BUS_DRIVER", "kafka")
	if _, err := LoadCluster(); err == nil {
		t.Fatal("LoadCluster() expected error for unknown bus driver")
	}
}
