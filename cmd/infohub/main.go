package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/infohub/internal/client"
	"github.com/kjstillabower/infohub/internal/config"
	"github.com/kjstillabower/infohub/internal/dashboard"
	"github.com/kjstillabower/infohub/internal/gateway"
	httphandler "github.com/kjstillabower/infohub/internal/http"
	"github.com/kjstillabower/infohub/internal/lifecycle"
	"github.com/kjstillabower/infohub/internal/location"
	"github.com/kjstillabower/infohub/internal/observability"
	"github.com/kjstillabower/infohub/internal/session"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	once := flag.Bool("once", false, "fetch every widget once, print the dashboard as JSON and exit")
	onceTimeout := flag.Duration("once-timeout", time.Minute, "how long -once waits for the widgets to settle")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	genClient, err := client.NewGeminiClient(cfg.APIKey, cfg.GenAIURL, cfg.GenAIModel, cfg.GenAITimeout)
	if err != nil {
		logger.Fatal("genai client", zap.Error(err))
	}
	gw, err := gateway.New(genClient, cfg.GenAIModel, logger)
	if err != nil {
		logger.Fatal("gateway", zap.Error(err))
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), *onceTimeout)
		err := runOnce(ctx, gw, cfg, logger, os.Stdout)
		cancel()
		if err != nil {
			logger.Fatal("once", zap.Error(err))
		}
		return
	}

	store, memcached := newStore(cfg, logger)
	registry := session.NewRegistry(store, newFactory(gw, cfg, logger), session.Config{
		IdleTTL:       cfg.SessionIdleTTL,
		PreferenceTTL: cfg.SessionPreferenceTTL,
	}, logger)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go registry.Run(runCtx)

	healthConfig := &httphandler.HealthConfig{Version: version}
	if memcached != nil {
		healthConfig.StorePing = memcached.Ping
	}
	handler, err := httphandler.NewHandler(registry, healthConfig, logger)
	if err != nil {
		logger.Fatal("handler", zap.Error(err))
	}

	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Registry:       registry,
		RefreshLimiter: rate.NewLimiter(rate.Limit(cfg.RefreshRateLimitRPS), cfg.RefreshRateLimitBurst),
		CookieMaxAge:   cfg.SessionPreferenceTTL,
		Logger:         logger,
	})

	// No WriteTimeout: /ws connections set their own write deadlines.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.MarkReady()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	handler.CloseStreams()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	stopRun()
	registry.CloseAll()

	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newStore picks the preference store. The memcached store is also returned
// on its own so main can ping and close it.
func newStore(cfg *config.Config, logger *zap.Logger) (session.Store, *session.MemcachedStore) {
	switch cfg.SessionBackend {
	case "memcached":
		mc := session.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		logger.Info("session backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return mc, mc
	default:
		logger.Info("session backend: in_memory")
		return session.NewInMemoryStore(), nil
	}
}

// newLocator returns the configured fixed position, or nil so the dashboard
// waits for the browser to report one.
func newLocator(cfg *config.Config) location.Locator {
	if cfg.StaticLocation != nil {
		return location.Static{Position: *cfg.StaticLocation}
	}
	return nil
}

func newFactory(gw dashboard.Gateway, cfg *config.Config, logger *zap.Logger) session.Factory {
	return func(prefs session.Preferences) (*dashboard.Dashboard, error) {
		principal := prefs.Principal
		if principal == "" {
			principal = cfg.DefaultPrincipal
		}
		return dashboard.New(gw, dashboard.Options{
			Locator:   newLocator(cfg),
			Tab:       prefs.Tab,
			Principal: principal,
			Logger:    logger,
		})
	}
}
