package main

import (
	"context"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goblingibber/arena/src/app/arena"
	"github.com/goblingibber/arena/src/infra/gateway"
	"github.com/goblingibber/arena/src/infra/registry"
)

type Config struct {
	HTTPAddress       string        `env:"ARENA_HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins    []string      `env:"ARENA_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	TickInterval      time.Duration `env:"ARENA_TICK_INTERVAL" envDefault:"100ms"`
	SweepInterval     time.Duration `env:"ARENA_SWEEP_INTERVAL" envDefault:"30s"`
	BroadcastInterval time.Duration `env:"ARENA_BROADCAST_INTERVAL" envDefault:"500ms"`
	InactivityTimeout time.Duration `env:"ARENA_INACTIVITY_TIMEOUT" envDefault:"2m"`
	RandomSeed        int64         `env:"ARENA_RANDOM_SEED"`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal("failed to parse configuration", zap.Error(err))
	}

	baseCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	shutdownTelemetry, err := setupTelemetry(baseCtx, "goblingibber-arena")
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(ctx)
		}()
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	dice := rand.New(rand.NewSource(seed))

	sessions := registry.NewMemoryRegistry()
	hub := gateway.NewHub(logger.Named("gateway"), cfg.AllowedOrigins)
	metrics := arena.NewMetrics(prometheus.DefaultRegisterer)
	engine := arena.NewEngine(sessions, hub, dice, logger.Named("engine"), metrics, arena.Config{
		BroadcastEvery:     cfg.BroadcastInterval,
		InactivityTimeout:  cfg.InactivityTimeout,
		TimingWindowChance: arena.DefaultConfig().TimingWindowChance,
	})
	hub.Attach(engine)

	scheduler := arena.NewScheduler(engine, logger.Named("scheduler"), cfg.TickInterval, cfg.SweepInterval)
	scheduler.Start()

	server := NewServer(ServerConfig{
		Logger:         logger,
		Engine:         engine,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Goblin Gibber arena listening", zap.String("addr", cfg.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-baseCtx.Done()
	scheduler.Stop()
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
