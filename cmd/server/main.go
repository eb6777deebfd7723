// Command server runs the control-plane HTTP API: /health, /discover,
// /compose, /chat.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/forge/composer/internal/api"
	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/dispatch"
	"github.com/forge/composer/internal/metrics"
	"github.com/forge/composer/pkg/config"
	"github.com/forge/composer/pkg/logger"
)

// ToolVersion is reported by GET /health.
const ToolVersion = "composer/1.0"

func main() {
	log := logger.NewLogger(logger.DefaultConfig())
	ctx := logger.ContextWithLogger(context.Background(), log)

	if err := run(ctx, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log logger.Logger) error {
	mgr := config.NewManager(nil)
	if err := config.Initialize(
		ctx, mgr,
		config.NewDefaultProvider(),
		config.NewYAMLProvider(configPath()),
		config.NewEnvProvider(),
	); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.Get()

	cat, err := catalog.Load(ctx, cfg.Catalog.TemplateRoot)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", "root", cfg.Catalog.TemplateRoot, "warnings", len(cat.Warnings()))

	dispatcher := buildDispatcher(cfg)

	metricsSvc, err := metrics.NewService(cfg.Monitoring.Enabled)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	srv := api.NewServer(cfg, cat, dispatcher, metricsSvc, ToolVersion)
	router := gin.New()
	router.Use(gin.Recovery())
	srv.RegisterRoutes(router)

	return serve(ctx, log, cfg, router)
}

// buildDispatcher selects a DispatchTransport per cfg.Dispatch.Transport.
// The "http" transport additionally requires TemplateRepo and Token; absent
// either, dispatch is skipped entirely. The "fs" transport only needs a
// queue directory, since it never calls out to an external webhook.
func buildDispatcher(cfg *config.Config) *dispatch.Dispatcher {
	var transport dispatch.DispatchTransport
	switch cfg.Dispatch.Transport {
	case "fs":
		transport = dispatch.NewFSTransport(cfg.Dispatch.QueueDir)
	default:
		if cfg.Dispatch.TemplateRepo == "" || cfg.Dispatch.Token.Value() == "" {
			return nil
		}
		transport = dispatch.NewHTTPTransport(cfg.Dispatch.TemplateRepo, cfg.Dispatch.Token.Value(), cfg.Dispatch.AttemptTimeout)
	}
	policy := dispatch.RetryPolicy{
		AttemptLimit: cfg.Dispatch.AttemptLimit,
		BaseBackoff:  cfg.Dispatch.BaseBackoff,
		MaxBackoff:   cfg.Dispatch.MaxBackoff,
	}
	return dispatch.NewDispatcher(transport, policy)
}

func configPath() string {
	if p := os.Getenv("COMPOSER_CONFIG_FILE"); p != "" {
		return p
	}
	return "composer.yaml"
}

func serve(ctx context.Context, log logger.Logger, cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting control plane API", "address", "http://"+addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case <-quit:
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server shutdown complete")
	return nil
}
