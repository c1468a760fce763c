package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
	StoreDriverDisabled = "disabled"
)

type ServerConfig struct {
	ServerName string `env:"SERVER_NAME,required,notEmpty"`
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	// AdminAPIKey guards the mutating API; empty leaves it open.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"gamefleet.db"`

	Arenas []string `env:"ARENAS" envSeparator:";"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return cfg, fmt.Errorf("POSTGRES_DSN is required for store driver %q", cfg.StoreDriver)
		}
	case StoreDriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return cfg, fmt.Errorf("SQLITE_PATH is required for store driver %q", cfg.StoreDriver)
		}
	case StoreDriverMemory, StoreDriverDisabled:
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if _, err := cfg.ArenaSpecs(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ArenaSpecs parses ARENAS.
func (c ServerConfig) ArenaSpecs() ([]ArenaSpec, error) {
	specs, err := parseArenaSpecs(c.Arenas)
	if err != nil {
		return nil, fmt.Errorf("ARENAS: %w", err)
	}
	return specs, nil
}
