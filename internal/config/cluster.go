package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BusDriverPostgres = "postgres"
	BusDriverMemory   = "memory"
)

type ClusterConfig struct {
	BusDriver         string `env:"BUS_DRIVER" envDefault:"postgres"`
	BusChannel        string `env:"BUS_CHANNEL" envDefault:"gamefleet_bus"`
	DispatchTimeoutMS int    `env:"DISPATCH_TIMEOUT_MS" envDefault:"2000"`

	TeleportMaxAttempts   int `env:"TELEPORT_MAX_ATTEMPTS" envDefault:"0"`
	TeleportMaxDurationMS int `env:"TELEPORT_MAX_DURATION_MS" envDefault:"0"`
	TeleportRetryBaseMS   int `env:"TELEPORT_RETRY_BASE_MS" envDefault:"250"`
}

func LoadCluster() (ClusterConfig, error) {
	var cfg ClusterConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.BusDriver = strings.ToLower(strings.TrimSpace(cfg.BusDriver))
	switch cfg.BusDriver {
	case BusDriverPostgres, BusDriverMemory:
	default:
		return cfg, fmt.Errorf("unknown BUS_DRIVER %q", cfg.BusDriver)
	}
	if cfg.DispatchTimeoutMS <= 0 {
		cfg.DispatchTimeoutMS = 2000
	}
	if cfg.TeleportMaxAttempts < 0 {
		cfg.TeleportMaxAttempts = 0
	}
	if cfg.TeleportMaxDurationMS < 0 {
		cfg.TeleportMaxDurationMS = 0
	}
	if cfg.TeleportRetryBaseMS <= 0 {
		cfg.TeleportRetryBaseMS = 250
	}
	return cfg, nil
}

func (c ClusterConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMS) * time.Millisecond
}

func (c ClusterConfig) TeleportMaxDuration() time.Duration {
	return time.Duration(c.TeleportMaxDurationMS) * time.Millisecond
}

func (c ClusterConfig) TeleportRetryBase() time.Duration {
	return time.Duration(c.TeleportRetryBaseMS) * time.Millisecond
}
