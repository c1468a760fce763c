package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gamefleet/internal/arena"
	"gamefleet/internal/bus"
	"gamefleet/internal/config"
	"gamefleet/internal/logging"
	"gamefleet/internal/node"
	"gamefleet/internal/store"
	httptransport "gamefleet/internal/transport/http"
	"gamefleet/internal/useraction"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("game node stopped")
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	records, err := openStore(ctx, cfg.Server)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	defer records.Close()

	transport, closeBus, err := openBus(ctx, cfg, records)
	if err != nil {
		return fmt.Errorf("bus init: %w", err)
	}
	defer closeBus()

	n, err := node.New(node.Options{
		Name:            cfg.Server.ServerName,
		Records:         records,
		Transport:       transport,
		DispatchTimeout: cfg.Cluster.DispatchTimeout(),
		Teleport: useraction.RetryPolicy{
			MaxAttempts: uint(cfg.Cluster.TeleportMaxAttempts),
			MaxDuration: cfg.Cluster.TeleportMaxDuration(),
			Base:        cfg.Cluster.TeleportRetryBase(),
		},
	})
	if err != nil {
		return err
	}
	if err := registerArenas(ctx, n, cfg.Server); err != nil {
		return err
	}

	r := httptransport.NewRouter(n, cfg.Server)
	httptransport.LogRoutes(r)
	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Str("server", n.Name).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := n.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.ServerConfig) (store.Records, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		st, err := store.NewPG(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		return st, nil
	case config.StoreDriverSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.StoreDriverMemory:
		log.Warn().Msg("memory store: records are local to this process")
		return store.NewMemory(), nil
	default:
		log.Warn().Msg("storage disabled: arena and room records are not persisted")
		return store.DisabledStore{}, nil
	}
}

// openBus reuses the store's pool for LISTEN/NOTIFY when the store is
// Postgres and opens a dedicated pool otherwise.
func openBus(ctx context.Context, cfg config.AppConfig, records store.Records) (bus.Transport, func(), error) {
	if cfg.Cluster.BusDriver == config.BusDriverMemory {
		log.Warn().Msg("memory bus: this node will not see the rest of the fleet")
		tr := bus.NewHub().Connect()
		return tr, func() { _ = tr.Close() }, nil
	}
	var pool *pgxpool.Pool
	closePool := func() {}
	if pg, ok := records.(*store.PGStore); ok {
		pool = pg.Pool
	} else {
		p, err := pgxpool.New(ctx, cfg.Server.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pool, closePool = p, p.Close
	}
	tr, err := bus.NewPG(pool, cfg.Cluster.BusChannel)
	if err != nil {
		closePool()
		return nil, nil, err
	}
	return tr, func() {
		_ = tr.Close()
		closePool()
	}, nil
}

func registerArenas(ctx context.Context, n *node.Node, cfg config.ServerConfig) error {
	specs, err := cfg.ArenaSpecs()
	if err != nil {
		return err
	}
	for _, spec := range specs {
		g, err := arena.ParseGameType(spec.GameType)
		if err != nil {
			return err
		}
		a, err := n.Registry.Register(ctx, arena.Arena{ID: spec.ID, GameType: g, MinPlayers: spec.MinPlayers, MaxPlayers: spec.MaxPlayers}, nil)
		if err != nil {
			return err
		}
		log.Info().Str("arena_id", a.ID).Str("game_type", string(g)).Str("range", a.Bucket()).Msg("arena hosted")
	}
	return nil
}
