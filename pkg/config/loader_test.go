package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamingbanjara/urgency-timer/pkg/config"
)

type testConfig struct {
	Name    string `env:"CFGTEST_NAME" envDefault:"widget"`
	Retries int    `env:"CFGTEST_RETRIES" envDefault:"3"`
}

func TestLoadDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "widget", cfg.Name)
	assert.Equal(t, 3, cfg.Retries)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "countdown")
	t.Setenv("CFGTEST_RETRIES", "7")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "countdown", cfg.Name)
	assert.Equal(t, 7, cfg.Retries)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("CFGTEST_RETRIES", "not-a-number")

	var cfg testConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoadNilPointer(t *testing.T) {
	err := config.Load[testConfig](nil)
	require.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoadPanics(t *testing.T) {
	t.Setenv("CFGTEST_RETRIES", "boom")

	assert.Panics(t, func() {
		var cfg testConfig
		config.MustLoad(&cfg)
	})
}
