package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/elevatorsim/dispatch/internal/constants"
	"github.com/elevatorsim/dispatch/internal/domain"
)

// Config is the application's full configuration, loaded from environment
// variables via caarlos0/env struct tags exactly as the teacher's
// internal/infra/config did; the elevator-CRUD-server fields are replaced
// with the simulation's own (spec.md §3 "Configuration").
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Server
	Port            int           `env:"PORT" envDefault:"6660"`
	WebSocketPort   int           `env:"WEBSOCKET_PORT" envDefault:"6661"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Simulation (spec.md §3)
	NumElevators   int     `env:"SIM_NUM_ELEVATORS" envDefault:"3"`
	MinFloor       int     `env:"SIM_MIN_FLOOR" envDefault:"1"`
	MaxFloor       int     `env:"SIM_MAX_FLOOR" envDefault:"12"`
	Capacity       int     `env:"SIM_CAPACITY" envDefault:"6"`
	TimePerFloorMs int64   `env:"SIM_TIME_PER_FLOOR_MS" envDefault:"1000"`
	DoorDwellMs    int64   `env:"SIM_DOOR_DWELL_MS" envDefault:"2000"`
	LobbyFloor     int     `env:"SIM_LOBBY_FLOOR" envDefault:"1"`
	TickRateMs     int64   `env:"SIM_TICK_RATE_MS" envDefault:"200"`
	RequestFreqMin int     `env:"SIM_REQUEST_FREQ_PER_MINUTE" envDefault:"4"`
	RandomSeed     int64   `env:"SIM_RANDOM_SEED" envDefault:"42"`

	// HTTP middleware
	RateLimitRPM       int           `env:"RATE_LIMIT_RPM" envDefault:"100"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	MaxRequestSize     int64         `env:"MAX_REQUEST_SIZE" envDefault:"1048576"`
	CORSEnabled        bool          `env:"CORS_ENABLED" envDefault:"true"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Monitoring
	MetricsEnabled      bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath         string `env:"METRICS_PATH" envDefault:"/metrics"`
	HealthEnabled       bool   `env:"HEALTH_ENABLED" envDefault:"true"`
	HealthPath          string `env:"HEALTH_PATH" envDefault:"/health"`
	LogRequestDetails   bool   `env:"LOG_REQUEST_DETAILS" envDefault:"false"`
	CorrelationIDHeader string `env:"CORRELATION_ID_HEADER" envDefault:"X-Request-ID"`
	TracingEnabled      bool   `env:"TRACING_ENABLED" envDefault:"false"`

	// Scheduler circuit breaker settings. The engine does not read these:
	// engine.New builds its breaker with fixed values (5 failures, 10s
	// reset timeout, 3 half-open calls), which match these defaults.
	SchedulerBreakerMaxFailures  int           `env:"SCHEDULER_BREAKER_MAX_FAILURES" envDefault:"5"`
	SchedulerBreakerResetTimeout time.Duration `env:"SCHEDULER_BREAKER_RESET_TIMEOUT" envDefault:"10s"`
	SchedulerBreakerHalfOpen     int           `env:"SCHEDULER_BREAKER_HALF_OPEN_LIMIT" envDefault:"3"`

	// WebSocket push channel
	WebSocketEnabled      bool          `env:"WEBSOCKET_ENABLED" envDefault:"true"`
	WebSocketPath         string        `env:"WEBSOCKET_PATH" envDefault:"/ws/status"`
	WebSocketWriteTimeout time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
	WebSocketReadTimeout  time.Duration `env:"WEBSOCKET_READ_TIMEOUT" envDefault:"60s"`
	WebSocketPingInterval time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"30s"`
	WebSocketBufferSize   int           `env:"WEBSOCKET_BUFFER_SIZE" envDefault:"16"`
}

// InitConfig loads configuration from the environment, applies
// environment-specific overlays, and validates the result — the same
// three-step shape as the teacher's InitConfig.
func InitConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	applyEnvironmentDefaults(&cfg)

	if err := validateConfiguration(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvironmentDefaults mirrors the teacher's per-environment defaulting:
// only production gets the slower tick rate spec.md §6 calls for; every
// other environment (including unset/unknown) runs at the fast dev rate.
func applyEnvironmentDefaults(cfg *Config) {
	switch cfg.Environment {
	case "development", "dev":
		if cfg.LogLevel == "INFO" {
			cfg.LogLevel = "DEBUG"
		}
		cfg.LogRequestDetails = true
	case "testing", "test":
		cfg.LogLevel = "WARN"
		cfg.TickRateMs = constants.DefaultTickRateMs
		cfg.MetricsEnabled = false
		cfg.WebSocketEnabled = false
	case "production", "prod":
		cfg.LogLevel = "WARN"
		cfg.LogRequestDetails = false
		cfg.TickRateMs = constants.ProductionTickRateMs
		cfg.RateLimitRPM = 30
	}
}

// validateConfiguration checks the structural invariants that aren't
// already covered by domain.SimConfig.Validate (HTTP/server-specific
// values), then delegates floor/capacity/timing checks to SimConfig so the
// two never drift out of sync.
func validateConfiguration(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return domain.NewValidationError("port must be between 1 and 65535", nil).WithContext("port", cfg.Port)
	}
	if cfg.WebSocketPort <= 0 || cfg.WebSocketPort > 65535 {
		return domain.NewValidationError("websocket port must be between 1 and 65535", nil).WithContext("port", cfg.WebSocketPort)
	}
	if _, err := cfg.SimConfig(); err != nil {
		return err
	}
	return nil
}

// SimConfig projects the HTTP-layer Config into the engine's domain.SimConfig.
func (c *Config) SimConfig() (domain.SimConfig, error) {
	sc := domain.NewDefaultSimConfig(c.Environment)
	sc.NumElevators = c.NumElevators
	sc.MinFloor = domain.NewFloor(c.MinFloor)
	sc.MaxFloor = domain.NewFloor(c.MaxFloor)
	sc.Capacity = c.Capacity
	sc.TimePerFloorMs = c.TimePerFloorMs
	sc.DoorDwellMs = c.DoorDwellMs
	sc.LobbyFloor = domain.NewFloor(c.LobbyFloor)
	sc.TickRateMs = c.TickRateMs

	if err := sc.Validate(); err != nil {
		return domain.SimConfig{}, err
	}
	return sc, nil
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment reports whether the configured environment is development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsTesting reports whether the configured environment is testing.
func (c *Config) IsTesting() bool {
	return c.Environment == "testing" || c.Environment == "test"
}
