package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/netswap/boost-engine/internal/api"
	"github.com/netswap/boost-engine/internal/config"
	"github.com/netswap/boost-engine/internal/engine"
	"github.com/netswap/boost-engine/internal/keeper"
	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/model"
)

func main() {
	path := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a .yaml or .toml config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("boost-engine exited", "err", err)
		os.Exit(1)
	}
	fmt.Println("boost-engine stopped")
}

func setupLogging(cfg *config.Config) {
	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		})
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := api.NewHub()
	eng := engine.New(st, engine.SystemClock{}, hub)

	genesis, err := cfg.GenesisSpec()
	if err != nil {
		return err
	}
	if err := eng.Bootstrap(ctx, genesis); errors.Is(err, model.ErrAlreadyInitialized) {
		slog.Info("ledgers already deployed")
	} else if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	var k *keeper.Keeper
	if cfg.Keeper.Enabled {
		if k, err = keeper.New(eng, cfg.Keeper.Spec); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(eng, hub).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		slog.Info("boost-engine listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down boost-engine...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if k != nil {
		g.Go(func() error { return k.Run(gctx) })
	}
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	var st kv.Store
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		pg := kv.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		st = pg
		slog.Info("connected to PostgreSQL")
	case config.BackendLevelDB:
		ldb, err := kv.OpenLevelStore(cfg.Storage.LevelDBPath)
		if err != nil {
			return nil, err
		}
		st = ldb
		slog.Info("opened LevelDB store", "path", cfg.Storage.LevelDBPath)
	default:
		slog.Warn("using in-memory store (data will not persist)")
		st = kv.NewMemoryStore()
	}

	if cfg.Storage.RedisURL == "" {
		return st, nil
	}
	opt, err := redis.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		st.Close()
		return nil, err
	}
	slog.Info("Redis cache enabled", "ttl", ttl)
	return kv.NewCachedStore(st, redis.NewClient(opt), ttl), nil
}
