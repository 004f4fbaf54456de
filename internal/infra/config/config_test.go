package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{"ENV", "LOG_LEVEL", "PORT", "SIM_NUM_ELEVATORS", "SIM_MIN_FLOOR", "SIM_MAX_FLOOR", "SIM_TICK_RATE_MS"}
	saved := map[string]string{}
	for _, k := range keys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	return func() {
		for k, v := range saved {
			if v != "" {
				os.Setenv(k, v)
			}
		}
	}
}

func TestInitConfig_DefaultValuesForDevelopment(t *testing.T) {
	defer clearEnvVars(t)()

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 3, cfg.NumElevators)
	assert.Equal(t, int64(200), cfg.TickRateMs)
}

func TestInitConfig_ProductionUsesSlowTickRate(t *testing.T) {
	defer clearEnvVars(t)()
	os.Setenv("ENV", "production")

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cfg.TickRateMs)
}

func TestSimConfig_RejectsInvertedFloorRange(t *testing.T) {
	defer clearEnvVars(t)()
	os.Setenv("SIM_MIN_FLOOR", "10")
	os.Setenv("SIM_MAX_FLOOR", "1")

	_, err := InitConfig()
	require.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Environment: "production"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
