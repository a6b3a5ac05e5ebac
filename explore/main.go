package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sarojini27-bose/memeverse/explore/adapters/auth"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/cache"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/captions"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/db"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/events"
	exploregrpc "github.com/Sarojini27-bose/memeverse/explore/adapters/grpc"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/imgflip"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/indexer"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/memory"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/rest"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/rest/middleware"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/sweeper"
	"github.com/Sarojini27-bose/memeverse/explore/adapters/words"
	"github.com/Sarojini27-bose/memeverse/explore/config"
	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const (
	metricsNamespace = "memeverse"
	healthInterval   = 30 * time.Second
)

// snapshotStore is a core.Store that can also report its health.
type snapshotStore interface {
	core.Store
	core.Pinger
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	// Graceful shutdown on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting explore server")
	log.Debug("debug messages are enabled")

	// Catalog adapter
	catalog, err := imgflip.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, log)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	// Snapshot store, optionally behind the read-through cache
	backing, closeStore, err := openStore(log, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	var store snapshotStore = backing
	if cfg.Cache.Enabled {
		cached, err := cache.New(log, backing, cfg.Cache.MaxCost, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to create cache: %w", err)
		}
		defer cached.Close()
		store = cached
	}

	pingers := map[string]core.Pinger{
		"catalog": catalog,
		"store":   store,
	}

	// Optional NATS publisher
	var (
		publisher core.Events
		natsPub   *events.Publisher
	)
	if cfg.BrokerAddress != "" {
		natsPub, err = events.NewPublisher(log, cfg.BrokerAddress)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer natsPub.Close()
		publisher = natsPub
		pingers["broker"] = natsPub
	}

	// Optional caption generator
	var captioner core.Captioner
	if cfg.OpenAI.APIKey != "" {
		gen, err := captions.New(captions.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create caption generator: %w", err)
		}
		captioner = gen
	}

	// Core service
	svc, err := core.NewService(log, catalog, store, words.New(), publisher, captioner, core.Options{
		PageSize:   cfg.PageSize,
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create explore service: %w", err)
	}

	// Ticker leaderboard indexer
	tickerIdx := indexer.New(log, svc, cfg.LeaderboardTTL)
	tickerIdx.Start(ctx)
	defer tickerIdx.Stop()

	// Event leaderboard indexer
	if natsPub != nil {
		eventIdx := indexer.NewEventIndexer(log, svc, natsPub.Conn(), cfg.EventDebounce)
		if err := eventIdx.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event indexer: %w", err)
		}
		defer eventIdx.Stop()
	}

	// Idle session sweeper
	sw, err := sweeper.New(log, svc, cfg.SweepSchedule)
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}
	sw.Start()
	defer sw.Stop()

	// gRPC health server
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	health := exploregrpc.NewServer(log, pingers)
	health.Refresh(ctx)
	go func() {
		if err := health.Serve(lis); err != nil {
			log.Error("grpc server stopped", "error", err)
		}
	}()
	go refreshHealth(ctx, health)
	defer health.Stop()

	// HTTP server
	authSvc, err := auth.New(cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to init auth service: %w", err)
	}
	metrics := middleware.NewMetrics(metricsNamespace)
	metrics.Gauge(metricsNamespace, "open_sessions", "Number of open view sessions", func() float64 {
		return float64(svc.Stats(context.Background()).Sessions)
	})

	server := http.Server{
		Addr:        cfg.HTTPConfig.Address,
		ReadTimeout: cfg.HTTPConfig.Timeout,
		Handler:     newRouter(ctx, log, cfg, svc, authSvc, metrics, pingers),
	}

	go func() {
		<-ctx.Done()
		log.Debug("shutting down explore server")
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error("erroneous shutdown", "error", err)
		}
	}()

	log.Info("Running HTTP server", "address", cfg.HTTPConfig.Address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server closed unexpectedly: %w", err)
	}
	return nil
}

func newRouter(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	svc *core.Service,
	authSvc *auth.Service,
	metrics *middleware.Metrics,
	pingers map[string]core.Pinger,
) http.Handler {
	authMw := middleware.AuthMiddleware(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.RequestConcurrency, metrics)
	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RequestRate, cfg.RequestRate)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.Wrap(pattern, h))
	}
	limited := func(pattern string, h http.Handler) {
		handle(pattern, concurrencyLimiter.Wrap(pattern, h))
	}

	mux.Handle("GET /metrics", metrics.Handler())
	handle("GET /api/ping", rest.NewPingHandler(log, pingers))
	handle("GET /api/stats", rest.NewStatsHandler(svc))
	handle("POST /api/login", rest.NewLoginHandler(log, authSvc, cfg.AdminUser, cfg.AdminPassword))

	limited("POST /api/sessions", rest.NewOpenSessionHandler(log, svc))
	limited("GET /api/sessions/{id}", rest.NewSessionHandler(log, svc))
	limited("PATCH /api/sessions/{id}", rest.NewUpdateSessionHandler(log, svc))
	limited("POST /api/sessions/{id}/next", rest.NewNextPageHandler(log, svc))
	handle("DELETE /api/sessions/{id}", rest.NewCloseSessionHandler(log, svc))

	handle("GET /api/memes/{id}", rest.NewDetailHandler(log, svc))
	handle("POST /api/memes/{id}/like", rateLimiter.Wrap(optionalAuth(rest.NewLikeHandler(log, svc))))
	handle("POST /api/memes/{id}/comments", rateLimiter.Wrap(rest.NewCommentHandler(log, svc)))
	handle("GET /api/leaderboard", rest.NewLeaderboardHandler(log, svc))
	handle("GET /api/captions", rateLimiter.Wrap(rest.NewCaptionHandler(svc)))

	handle("GET /api/profile", authMw(rest.NewProfileHandler(log, svc)))
	handle("PUT /api/profile", authMw(rest.NewSaveProfileHandler(log, svc)))
	handle("GET /api/profile/uploads", authMw(rest.NewUploadsHandler(log, svc)))
	handle("POST /api/profile/uploads", authMw(rateLimiter.Wrap(rest.NewUploadHandler(log, svc))))
	handle("GET /api/profile/liked", authMw(rest.NewLikedHandler(log, svc)))

	return mux
}

func openStore(log *slog.Logger, cfg config.StoreConfig) (snapshotStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory store, snapshots are lost on restart")
		return memory.New(), func() {}, nil
	case db.DriverPostgres, db.DriverSQLite:
		conn, err := db.New(log, cfg.Driver, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := conn.Migrate(); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return conn, func() {
			if err := conn.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func refreshHealth(ctx context.Context, health *exploregrpc.Server) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health.Refresh(ctx)
		}
	}
}

func mustMakeLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		panic("unknown log level: " + logLevel)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: true})
	return slog.New(handler)
}
