package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.EngineHost)
	assert.Equal(t, 7777, cfg.EnginePort)
	assert.Equal(t, "/tmp/thestuu-native.sock", cfg.BackendSocketPath)
	assert.True(t, cfg.BackendEnabled)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, 4, cfg.DefaultTrackCount)
	assert.Equal(t, "welcome.stu", cfg.DefaultProjectFile)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("THESTUU_ENGINE_PORT", "9001")
	t.Setenv("THESTUU_BACKEND_ENABLED", "false")
	t.Setenv("THESTUU_REQUEST_TIMEOUT", "5s")
	t.Setenv("THESTUU_DEFAULT_TRACK_COUNT", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.EnginePort)
	assert.False(t, cfg.BackendEnabled)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.DefaultTrackCount)
}

func TestLoadInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("THESTUU_ENGINE_PORT", "not-a-port")
	t.Setenv("THESTUU_BACKEND_ENABLED", "maybe")
	t.Setenv("THESTUU_RECONNECT_DELAY", "soonish")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.EnginePort)
	assert.True(t, cfg.BackendEnabled)
	assert.Equal(t, 750*time.Millisecond, cfg.ReconnectDelay)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := Config{EnginePort: -1, ProjectDir: "", BackendSocketPath: "", RequestTimeout: 0, ReconnectDelay: 0, DefaultTrackCount: 0}
	errs := cfg.Validate()
	assert.Len(t, errs, 6)
}
