package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReloadAppliesValidChange(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("escalation.threshold", 5)

	core, logs := observer.New(zap.ErrorLevel)
	var applied *Config
	reload(zap.New(core), func(cfg *Config) { applied = cfg })

	require.NotNil(t, applied, "a valid change must reach the callback")
	assert.Equal(t, 5, applied.Escalation.Threshold)
	// Untouched settings keep their defaults.
	assert.Equal(t, 8080, applied.Server.Port)
	assert.Equal(t, 0, logs.Len())
}

func TestReloadRejectsInvalidChange(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("server.port", -1)

	core, logs := observer.New(zap.ErrorLevel)
	called := false
	reload(zap.New(core), func(*Config) { called = true })

	assert.False(t, called, "an invalid change must not reach the callback")
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "invalid")
}

func TestValidateConfigDefaults(t *testing.T) {
	assert.NoError(t, validateConfig(GetDefaults()))
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Escalation.Threshold = 0 }},
		{"negative retries", func(c *Config) { c.Escalation.LockoutRetries = -1 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
