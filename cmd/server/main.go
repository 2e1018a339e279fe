package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sh4869221b/niconeon/internal/api"
	"github.com/sh4869221b/niconeon/internal/config"
	"github.com/sh4869221b/niconeon/internal/db"
	"github.com/sh4869221b/niconeon/internal/niconico"
	"github.com/sh4869221b/niconeon/internal/repository"
	"github.com/sh4869221b/niconeon/internal/rpc"
	"github.com/sh4869221b/niconeon/internal/services"
	"github.com/sh4869221b/niconeon/internal/services/hub"
	"github.com/sh4869221b/niconeon/internal/telemetry"
)

const (
	serviceName    = "niconeon-core"
	serviceVersion = "0.1.0"
)

/*
LEARNING: GRACEFUL SHUTDOWN PATTERN WITH OBSERVABILITY

This main function demonstrates:
1. Dependency injection: one AppCore, built here and handed to the rpc server
2. Two transports over the same dispatcher (--stdio or HTTP + websocket)
3. Distributed tracing with Jaeger
4. Graceful shutdown handling (listening for SIGINT/SIGTERM)

Cleanup order is the reverse of startup: transport, hub, database, tracer.
*/

func main() {
	stdio := flag.Bool("stdio", false, "serve line-delimited JSON-RPC on stdin/stdout instead of HTTP")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}

	// stdout is the protocol channel in stdio mode
	logOut := os.Stdout
	if *stdio {
		logOut = os.Stderr
	}
	if err := telemetry.InitLogger(cfg.LogLevel, cfg.LogFormat, logOut); err != nil {
		logrus.Fatalf("❌ Failed to configure logging: %v", err)
	}

	logrus.Info("🚀 Starting niconeon core...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Learning: Do this FIRST so all operations are traced
	jaegerShutdown := func(ctx context.Context) error { return nil }
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitJaeger(serviceName, serviceVersion, cfg.JaegerEndpoint)
		if err != nil {
			logrus.WithError(err).Warn("⚠️  Failed to initialize Jaeger (continuing without tracing)")
		} else {
			jaegerShutdown = shutdown
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			logrus.WithError(err).Warn("⚠️  Failed to shutdown Jaeger")
		}
	}()

	// Initialize GORM database
	database, err := db.NewGorm(cfg)
	if err != nil {
		logrus.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	store := services.Store{
		NgUsers:  repository.NewNgUserRepository(database.DB),
		Filters:  repository.NewRegexFilterRepository(database.DB),
		Cache:    repository.NewCommentCacheRepository(database.DB),
		VideoMap: repository.NewVideoMapRepository(database.DB),
	}
	source := niconico.NewClient(cfg.NiconicoBaseURL, cfg.NiconicoCookie, cfg.FetchTimeout)

	core, err := services.NewAppCore(ctx, source, store, services.Options{
		MaxSessions:    cfg.MaxSessions,
		InitialProfile: cfg.RuntimeProfile,
	})
	if err != nil {
		logrus.Fatalf("❌ Failed to initialize app core: %v", err)
	}

	if *stdio {
		server := rpc.NewServer(core, nil)
		if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("❌ stdio transport failed")
		}
		logrus.Info("✓ stdio session ended")
		return
	}

	// The hub is the rpc server's notifier and the rpc server is the hub's dispatcher
	wsHub := hub.New()
	server := rpc.NewServer(core, wsHub)
	wsHub.SetDispatcher(server)
	wsHub.Start()

	handler := api.NewHandler(server, wsHub)
	router := api.SetupRoutes(handler)

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Learning: This allows us to handle shutdown signals concurrently
	go func() {
		logrus.Infof("🌐 Server listening on http://%s", addr)
		logrus.Info("📚 Endpoints:")
		logrus.Info("   POST /rpc         - JSON-RPC 2.0 request")
		logrus.Info("   GET  /ws          - JSON-RPC over websocket + notifications")
		logrus.Info("   GET  /api/health  - Health check")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("❌ Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("🛑 Shutting down server...")

	// Learning: Give the server 30 seconds to finish existing requests
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("⚠️  Server forced to shutdown")
	}

	// Learning: This closes all active WebSocket connections gracefully
	wsHub.Shutdown()

	logrus.Info("✓ Server shutdown complete")
}
