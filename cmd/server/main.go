package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elevatorsim/dispatch/internal/engine"
	httpPkg "github.com/elevatorsim/dispatch/internal/http"
	"github.com/elevatorsim/dispatch/internal/infra/config"
	"github.com/elevatorsim/dispatch/internal/infra/logging"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		slog.Error("failed to initialize configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.InfoContext(ctx, "elevator dispatch simulation starting up",
		slog.String("environment", cfg.Environment),
		slog.String("log_level", cfg.LogLevel),
		slog.Int("port", cfg.Port),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled),
		slog.Bool("websocket_enabled", cfg.WebSocketEnabled))

	simCfg, err := cfg.SimConfig()
	if err != nil {
		slog.ErrorContext(ctx, "invalid simulation configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eng, err := engine.New(simCfg, cfg.RandomSeed)
	if err != nil {
		slog.ErrorContext(ctx, "failed to construct simulation engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := eng.SetRequestFrequency(cfg.RequestFreqMin); err != nil {
		slog.ErrorContext(ctx, "failed to apply configured request frequency", slog.String("error", err.Error()))
	}

	if err := eng.Start(); err != nil {
		slog.ErrorContext(ctx, "failed to start simulation engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	port := cfg.Port
	if port <= 0 {
		slog.WarnContext(ctx, "invalid port in configuration, using default",
			slog.Int("configured_port", port), slog.Int("default_port", 6660))
		port = 6660
	}

	server := httpPkg.NewServer(cfg, port, eng)

	var wsServer *httpPkg.WebSocketServer
	if cfg.WebSocketEnabled {
		wsServer = httpPkg.NewWebSocketServer(cfg.WebSocketPort, eng,
			slog.With(slog.String("component", "websocket-server")),
			cfg.WebSocketPingInterval, cfg.WebSocketWriteTimeout, cfg.WebSocketReadTimeout, cfg.WebSocketBufferSize)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 2)

	go func() {
		slog.InfoContext(ctx, "starting HTTP server",
			slog.Int("port", port),
			slog.String("environment", cfg.Environment),
			slog.Duration("read_timeout", cfg.ReadTimeout),
			slog.Duration("write_timeout", cfg.WriteTimeout),
			slog.Duration("idle_timeout", cfg.IdleTimeout))

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "HTTP server failed to start", slog.Int("port", port), slog.String("error", err.Error()))
			serverErrCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if wsServer != nil {
		go func() {
			slog.InfoContext(ctx, "starting WebSocket server", slog.Int("port", cfg.WebSocketPort))
			if err := wsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.ErrorContext(ctx, "WebSocket server failed to start",
					slog.Int("port", cfg.WebSocketPort), slog.String("error", err.Error()))
				serverErrCh <- fmt.Errorf("WebSocket server failed: %w", err)
			}
		}()
	}

	startupTimer := time.NewTimer(2 * time.Second)

	select {
	case err := <-serverErrCh:
		startupTimer.Stop()
		slog.ErrorContext(ctx, "server startup failed", slog.String("error", err.Error()))
		shutdownServers(server, wsServer, cfg)
		_ = eng.Stop()
		os.Exit(1)

	case <-startupTimer.C:
		slog.InfoContext(ctx, "all servers started successfully")

	case sig := <-quit:
		startupTimer.Stop()
		slog.InfoContext(ctx, "received shutdown signal during startup", slog.String("signal", sig.String()))
		shutdownServers(server, wsServer, cfg)
		_ = eng.Stop()
		return
	}

	sig := <-quit
	slog.InfoContext(ctx, "received shutdown signal",
		slog.String("signal", sig.String()),
		slog.Duration("shutdown_timeout", cfg.ShutdownTimeout))

	cancel()

	shutdownServers(server, wsServer, cfg)

	slog.InfoContext(ctx, "stopping simulation engine")
	_ = eng.Stop()
	slog.InfoContext(ctx, "simulation engine stopped")
}

// shutdownServers gracefully shuts down the HTTP and (if enabled) WebSocket servers.
func shutdownServers(server *httpPkg.Server, wsServer *httpPkg.WebSocketServer, cfg *config.Config) {
	slog.Info("shutting down servers gracefully")

	if err := server.Shutdown(); err != nil {
		slog.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket server shutdown failed", slog.String("error", err.Error()))
		} else {
			slog.Info("WebSocket server shutdown completed")
		}
	}
}
