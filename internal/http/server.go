package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elevatorsim/dispatch/internal/constants"
	"github.com/elevatorsim/dispatch/internal/engine"
	"github.com/elevatorsim/dispatch/internal/infra/config"
	"github.com/elevatorsim/dispatch/internal/infra/health"
	"github.com/elevatorsim/dispatch/internal/infra/observability"
)

// Server represents the HTTP server.
type Server struct {
	engine        *engine.Engine
	httpServer    *http.Server
	cfg           *config.Config
	logger        *slog.Logger
	healthService *health.HealthService
}

// upgrader is used to upgrade HTTP connections to WebSocket connections.
var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: false,
	Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
		fmt.Printf("WebSocket upgrade error: %v (status: %d)\n", reason, status)
		http.Error(w, reason.Error(), status)
	},
}

// NewServer creates a new instance of Server with versioned API and middleware.
func NewServer(cfg *config.Config, port int, eng *engine.Engine) *Server {
	s := &Server{
		engine:        eng,
		cfg:           cfg,
		logger:        slog.With(slog.String("component", constants.ComponentHTTPServer)),
		healthService: health.NewHealthService(30 * time.Second),
	}

	s.setupHealthChecks(eng)

	addr := fmt.Sprintf(":%d", port)

	v1Handlers := NewV1Handlers(eng, cfg, s.logger)

	rateLimiter := NewRateLimitMiddleware(cfg.RateLimitRPM, s.logger)
	telemetry := observability.NewTelemetryProvider(&observability.Config{
		Enabled:     cfg.MetricsEnabled,
		ServiceName: "elevator-dispatch-sim",
		Environment: cfg.Environment,
	}, s.logger)

	middlewareChain := ChainMiddleware(
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		RecoveryMiddleware(s.logger),
		CORSMiddleware(),
		SecurityHeadersMiddleware(),
		rateLimiter.Handler(),
		telemetry.TelemetryMiddleware(),
	)

	mux := http.NewServeMux()

	// === V1 command surface (spec.md §5, §6) ===
	mux.HandleFunc("/v1", v1Handlers.APIInfoHandler)
	mux.HandleFunc("/v1/start", v1Handlers.StartHandler)
	mux.HandleFunc("/v1/stop", v1Handlers.StopHandler)
	mux.HandleFunc("/v1/reset", v1Handlers.ResetHandler)
	mux.HandleFunc("/v1/speed", v1Handlers.SpeedHandler)
	mux.HandleFunc("/v1/frequency", v1Handlers.FrequencyHandler)
	mux.HandleFunc("/v1/config", v1Handlers.ReconfigureHandler)
	mux.HandleFunc("/v1/requests", v1Handlers.RequestHandler)
	mux.HandleFunc("/v1/scenario", v1Handlers.ScenarioHandler)
	mux.HandleFunc("/v1/snapshot", v1Handlers.SnapshotHandler)
	mux.HandleFunc("/v1/metrics", v1Handlers.MetricsSnapshotHandler)
	mux.HandleFunc("/v1/health", v1Handlers.HealthHandler)

	// Enhanced health endpoints
	mux.HandleFunc("/v1/health/live", s.livenessHandler)
	mux.HandleFunc("/v1/health/ready", s.readinessHandler)
	mux.HandleFunc("/v1/health/detailed", s.detailedHealthHandler)

	// === Monitoring ===
	mux.Handle("/metrics", promhttp.Handler())

	// Tick-synchronized push channel (spec.md §6)
	mux.HandleFunc("/ws/status", s.statusWebSocketHandler)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      middlewareChain(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupHealthChecks initializes and registers health check components
func (s *Server) setupHealthChecks(eng *engine.Engine) {
	s.healthService.Register(health.NewSystemResourceChecker(85.0, 1000))
	s.healthService.Register(health.NewLivenessChecker())

	engineHealthChecker := health.NewComponentHealthChecker("engine", func(ctx context.Context) (bool, string, map[string]interface{}) {
		running := eng.Running()
		snap := eng.Snapshot()
		details := map[string]interface{}{
			"running":       running,
			"car_count":     len(snap.Cars),
			"pending_count": len(snap.Pending),
		}
		if len(snap.Cars) == 0 {
			return false, "no elevators configured", details
		}
		return true, "engine is configured and responsive", details
	})
	s.healthService.Register(engineHealthChecker)

	readinessChecker := health.NewReadinessChecker(engineHealthChecker)
	s.healthService.Register(readinessChecker)

	s.logger.Info("health checks initialized", slog.Int("registered_checkers", 4))
}

// livenessHandler handles liveness probe requests
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.healthService.Check(r.Context(), "liveness")
	if err != nil {
		http.Error(w, "Liveness check failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == health.StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// readinessHandler handles readiness probe requests
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := s.healthService.Check(r.Context(), "readiness")
	if err != nil {
		http.Error(w, "Readiness check failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == health.StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// detailedHealthHandler provides comprehensive health status
func (s *Server) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overallStatus, results := s.healthService.GetOverallStatus(r.Context())

	response := map[string]interface{}{
		"status":    string(overallStatus),
		"timestamp": time.Now(),
		"checks":    results,
		"summary": map[string]interface{}{
			"total_checks":     len(results),
			"healthy_checks":   countChecksWithStatus(results, health.StatusHealthy),
			"degraded_checks":  countChecksWithStatus(results, health.StatusDegraded),
			"unhealthy_checks": countChecksWithStatus(results, health.StatusUnhealthy),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	var statusCode int
	switch overallStatus {
	case health.StatusUnhealthy:
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusOK
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// countChecksWithStatus counts health checks with a specific status
func countChecksWithStatus(results map[string]health.CheckResult, status health.Status) int {
	count := 0
	for _, result := range results {
		if result.Status == status {
			count++
		}
	}
	return count
}

// statusWebSocketHandler upgrades to a WebSocket and streams a snapshot
// after every tick via engine.Subscribe (spec.md §6), replacing the
// 100ms-polling model with a push driven directly by the tick loop.
func (s *Server) statusWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to upgrade connection to WebSocket",
			slog.String("error", err.Error()))
		return
	}
	defer func() {
		if err := ws.Close(); err != nil {
			s.logger.ErrorContext(r.Context(), "failed to close WebSocket connection",
				slog.String("error", err.Error()))
		}
	}()

	s.logger.InfoContext(r.Context(), "WebSocket connection established")

	if err := ws.WriteJSON(s.engine.Snapshot()); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to send initial status via WebSocket",
			slog.String("error", err.Error()))
		return
	}

	snapshots, unsubscribe := s.engine.Subscribe(s.cfg.WebSocketBufferSize)
	defer unsubscribe()

	pingTicker := time.NewTicker(s.cfg.WebSocketPingInterval)
	defer pingTicker.Stop()

	if err := ws.SetReadDeadline(time.Now().Add(s.cfg.WebSocketReadTimeout)); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to set read deadline",
			slog.String("error", err.Error()))
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.WebSocketReadTimeout))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.WarnContext(r.Context(), "WebSocket connection closed unexpectedly",
						slog.String("error", err.Error()))
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return

		case <-r.Context().Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown"),
				time.Now().Add(s.cfg.WebSocketWriteTimeout))
			return

		case <-pingTicker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(s.cfg.WebSocketWriteTimeout)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(s.cfg.WebSocketWriteTimeout)); err != nil {
				return
			}
			if err := ws.WriteJSON(snap); err != nil {
				s.logger.ErrorContext(r.Context(), "failed to send status update via WebSocket",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// GetHandler returns the HTTP handler for testing purposes
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
