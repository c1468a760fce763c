package main

import (
	"context"
	"path/filepath"
	"testing"

	"gamefleet/internal/bus"
	"gamefleet/internal/config"
	"gamefleet/internal/node"
	"gamefleet/internal/store"
)

func TestOpenStoreByDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		cfg      config.ServerConfig
		disabled bool
	}{
		{config.ServerConfig{StoreDriver: config.StoreDriverMemory}, false},
		{config.ServerConfig{StoreDriver: config.StoreDriverDisabled}, true},
		{config.ServerConfig{StoreDriver: config.StoreDriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "fleet.db")}, false},
	}
	for _, tc := range cases {
		records, err := openStore(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.cfg.StoreDriver, err)
		}
		if records.Disabled() != tc.disabled {
			t.Fatalf("%s: Disabled() = %v", tc.cfg.StoreDriver, records.Disabled())
		}
		if err := records.Ping(ctx); err != nil {
			t.Fatalf("%s ping: %v", tc.cfg.StoreDriver, err)
		}
		records.Close()
	}
}

func TestOpenBusMemory(t *testing.T) {
	cfg := config.AppConfig{Cluster: config.ClusterConfig{BusDriver: config.BusDriverMemory}}
	tr, closeBus, err := openBus(context.Background(), cfg, store.NewMemory())
	if err != nil {
		t.Fatalf("open bus: %v", err)
	}
	closeBus()
	if err := tr.Publish(context.Background(), bus.Envelope{Type: bus.TypeEvent, Kind: "x"}); err == nil {
		t.Fatal("publish on closed bus should fail")
	}
}

func TestRegisterArenasFromConfig(t *testing.T) {
	tr := bus.NewHub().Connect()
	defer tr.Close()
	records := store.NewMemory()
	n, err := node.New(node.Options{Name: "game-1", Records: records, Transport: tr})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	cfg := config.ServerConfig{Arenas: []string{"a1:spleef:2:8", "a2:TNT_RUN:1:12"}}
	if err := registerArenas(context.Background(), n, cfg); err != nil {
		t.Fatalf("register: %v", err)
	}
	local := n.Registry.LocalArenas()
	if len(local) != 2 || local[0].ID != "a1" || local[1].ServerName != "game-1" {
		t.Fatalf("unexpected local arenas %+v", local)
	}

	bad := config.ServerConfig{Arenas: []string{"a3:CHESS:2:2"}}
	if err := registerArenas(context.Background(), n, bad); err == nil {
		t.Fatal("unknown game type should fail")
	}
}
