package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/elevatorsim/dispatch/internal/constants"
	"github.com/elevatorsim/dispatch/internal/domain"
	"github.com/elevatorsim/dispatch/internal/engine"
	"github.com/elevatorsim/dispatch/internal/infra/config"
	"github.com/elevatorsim/dispatch/internal/infra/logging"
)

// V1Handlers exposes the simulation's command surface (spec.md §5, §6) over
// HTTP: start/stop/reset/setSpeed/reconfigure/addManualRequest/
// spawnScenario/setRequestFrequency/snapshot/metricsSnapshot.
type V1Handlers struct {
	engine *engine.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// NewV1Handlers creates a new V1Handlers instance
func NewV1Handlers(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) *V1Handlers {
	return &V1Handlers{
		engine: eng,
		cfg:    cfg,
		logger: logger,
	}
}

// RequestBody is the JSON body for POST /v1/requests.
type RequestBody struct {
	From       int    `json:"from"`
	To         int    `json:"to"`
	ElevatorID string `json:"elevator_id,omitempty"` // non-empty = internal (car-panel) request
}

// RequestResponse is the response for a submitted request.
type RequestResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	FromFloor  int    `json:"from_floor"`
	ToFloor    int    `json:"to_floor"`
	Direction  string `json:"direction"`
	ElevatorID string `json:"elevator_id,omitempty"`
}

// SpeedBody is the JSON body for POST /v1/speed.
type SpeedBody struct {
	Speed float64 `json:"speed"`
}

// FrequencyBody is the JSON body for POST /v1/frequency.
type FrequencyBody struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

// ScenarioBody is the JSON body for POST /v1/scenario.
type ScenarioBody struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ScenarioResponse reports how many requests a scenario spawned.
type ScenarioResponse struct {
	Name      string `json:"name"`
	Requested int    `json:"requested"`
}

// ReconfigureBody mirrors the subset of domain.SimConfig operators can
// change via the API.
type ReconfigureBody struct {
	NumElevators   int   `json:"num_elevators"`
	MinFloor       int   `json:"min_floor"`
	MaxFloor       int   `json:"max_floor"`
	Capacity       int   `json:"capacity"`
	TimePerFloorMs int64 `json:"time_per_floor_ms"`
	DoorDwellMs    int64 `json:"door_dwell_ms"`
	LobbyFloor     int   `json:"lobby_floor"`
	TickRateMs     int64 `json:"tick_rate_ms"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]interface{} `json:"checks"`
}

// APIInfoResponse represents API information
type APIInfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

// StartHandler starts the tick driver (POST /v1/start).
func (h *V1Handlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.engine.Start(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// StopHandler stops the tick driver (POST /v1/stop).
func (h *V1Handlers) StopHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.engine.Stop(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// ResetHandler stops (if running) and rebuilds the simulation from its
// current configuration (POST /v1/reset).
func (h *V1Handlers) ResetHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.engine.Reset(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// SpeedHandler adjusts the clock's speed multiplier (POST /v1/speed).
func (h *V1Handlers) SpeedHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var body SpeedBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON", "Request body contains invalid JSON")
		return
	}

	if err := h.engine.SetSpeed(body.Speed); err != nil {
		h.logger.WarnContext(r.Context(), "setSpeed rejected",
			slog.Float64("speed", body.Speed), slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// FrequencyHandler changes the periodic spawner's rate (POST /v1/frequency).
func (h *V1Handlers) FrequencyHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var body FrequencyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON", "Request body contains invalid JSON")
		return
	}

	if err := h.engine.SetRequestFrequency(body.RequestsPerMinute); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, map[string]int{"requests_per_minute": body.RequestsPerMinute})
}

// ReconfigureHandler replaces the simulation configuration wholesale
// (POST /v1/config). Rejected while running (domain.ErrEngineRunning).
func (h *V1Handlers) ReconfigureHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var body ReconfigureBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON", "Request body contains invalid JSON")
		return
	}

	sc := domain.NewDefaultSimConfig(h.cfg.Environment)
	sc.NumElevators = body.NumElevators
	sc.MinFloor = domain.NewFloor(body.MinFloor)
	sc.MaxFloor = domain.NewFloor(body.MaxFloor)
	sc.Capacity = body.Capacity
	sc.TimePerFloorMs = body.TimePerFloorMs
	sc.DoorDwellMs = body.DoorDwellMs
	sc.LobbyFloor = domain.NewFloor(body.LobbyFloor)
	sc.TickRateMs = body.TickRateMs

	if err := h.engine.Reconfigure(sc); err != nil {
		h.logger.WarnContext(r.Context(), "reconfigure rejected",
			slog.String("request_id", requestID), slog.String("error", err.Error()))
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// RequestHandler submits a manual request: an external hall call when
// elevator_id is empty, or an internal car-panel request otherwise
// (POST /v1/requests).
func (h *V1Handlers) RequestHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var body RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode request body",
			slog.String("error", err.Error()), slog.String("request_id", requestID))
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON", "Request body contains invalid JSON")
		return
	}

	req, err := h.engine.AddManualRequest(body.From, body.To, body.ElevatorID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual request rejected",
			slog.Int("from_floor", body.From),
			slog.Int("to_floor", body.To),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	response := RequestResponse{
		ID:         req.ID,
		Type:       string(req.Type),
		FromFloor:  req.FromFloor.Value(),
		ToFloor:    req.ToFloor.Value(),
		Direction:  string(req.Direction),
		ElevatorID: req.AssignedTo,
	}

	h.logger.InfoContext(r.Context(), "manual request submitted",
		slog.String("request_id", requestID),
		slog.String("component", constants.ComponentHTTPHandler))

	rw.WriteJSON(http.StatusCreated, response)
}

// ScenarioHandler generates a named batch of requests (POST /v1/scenario).
func (h *V1Handlers) ScenarioHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var body ScenarioBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON", "Request body contains invalid JSON")
		return
	}

	n, err := h.engine.SpawnScenario(body.Name, body.Count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "scenario spawn rejected",
			slog.String("scenario", body.Name), slog.Int("count", body.Count),
			slog.String("error", err.Error()), slog.String("request_id", requestID))
		rw.WriteDomainError(err)
		return
	}

	rw.WriteJSON(http.StatusOK, ScenarioResponse{Name: body.Name, Requested: n})
}

// SnapshotHandler returns the full simulation state (GET /v1/snapshot).
func (h *V1Handlers) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}

	rw.WriteJSON(http.StatusOK, h.engine.Snapshot())
}

// MetricsSnapshotHandler returns the aggregated simulation statistics
// (GET /v1/metrics).
func (h *V1Handlers) MetricsSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}

	rw.WriteJSON(http.StatusOK, h.engine.MetricsSnapshot())
}

// HealthHandler handles v1 health checks (GET /v1/health)
func (h *V1Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}

	status := "healthy"
	statusCode := http.StatusOK

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks: map[string]interface{}{
			"engine_running": h.engine.Running(),
		},
	}

	h.logger.InfoContext(r.Context(), "health check request processed",
		slog.Int("status_code", statusCode), slog.String("request_id", requestID))

	rw.WriteJSON(statusCode, response)
}

// APIInfoHandler provides information about available API endpoints (GET /v1)
func (h *V1Handlers) APIInfoHandler(w http.ResponseWriter, r *http.Request) {
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)

	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}

	response := APIInfoResponse{
		Name:        "Elevator Dispatch Simulation API",
		Version:     "v1",
		Description: "Discrete-time elevator group dispatch simulator",
		Endpoints: map[string]string{
			"POST /v1/start":     "Start the tick driver",
			"POST /v1/stop":      "Stop the tick driver",
			"POST /v1/reset":     "Reset the simulation",
			"POST /v1/speed":     "Set the clock speed multiplier",
			"POST /v1/frequency": "Set the periodic spawner's request rate",
			"POST /v1/config":    "Reconfigure the simulation (must be stopped)",
			"POST /v1/requests":  "Submit a manual request",
			"POST /v1/scenario":  "Spawn a named scenario batch",
			"GET /v1/snapshot":   "Get the full simulation state",
			"GET /v1/metrics":    "Get aggregated simulation statistics",
			"GET /v1/health":     "Check system health status",
			"GET /v1":            "Get API information",
			"GET /metrics":       "Prometheus metrics endpoint",
			"WebSocket /ws/status": "Real-time simulation status push",
		},
	}

	rw.WriteJSON(http.StatusOK, response)
}

func (h *V1Handlers) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	requestID := logging.GetRequestID(r.Context())
	rw := NewResponseWriter(w, h.logger, requestID)
	h.logger.WarnContext(r.Context(), "invalid request method",
		slog.String("method", r.Method), slog.String("expected", method), slog.String("request_id", requestID))
	rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
		"Method not allowed", "Only "+method+" is supported for this endpoint")
	return false
}
