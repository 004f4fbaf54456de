// Package observability bootstraps OpenTelemetry tracer/meter handles for
// the simulation's HTTP layer and tick driver. It wraps the global otel API
// rather than wiring a concrete exporter backend: spec.md never requires
// traces to leave the process, so there is no SDK/exporter dependency to
// configure, only named spans and counters a future exporter can pick up.
package observability

import "errors"

// Config controls whether tracing instrumentation is active and how spans
// are labeled.
type Config struct {
	Enabled     bool    `env:"OBSERVABILITY_ENABLED" envDefault:"true"`
	ServiceName string  `env:"SERVICE_NAME" envDefault:"elevator-dispatch-sim"`
	Environment string  `env:"ENVIRONMENT" envDefault:"development"`
	Version     string  `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	SampleRatio float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1.0"`
}

var errSamplingRatio = errors.New("observability: sampling ratio must be between 0.0 and 1.0")

// Validate checks the configured sampling ratio is within range.
func (c *Config) Validate() error {
	if c.SampleRatio < 0.0 || c.SampleRatio > 1.0 {
		return errSamplingRatio
	}
	return nil
}
