package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseURL  string `env:"TEST_CFG_BASE_URL" envDefault:"http://localhost:8000/api"`
	Timeout  int    `env:"TEST_CFG_TIMEOUT" envDefault:"15"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.BaseURL)
	assert.Equal(t, 15, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_BASE_URL", "https://shop.example.com/api")
	t.Setenv("TEST_CFG_TIMEOUT", "5")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api", cfg.BaseURL)
	assert.Equal(t, 5, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_TIMEOUT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFrom_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_TIMEOUT", "99")

	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_LOG_LEVEL": "warn"})

	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFrom_InvalidType(t *testing.T) {
	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{"TEST_CFG_DEBUG": "maybe"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
