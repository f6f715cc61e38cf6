// Package config loads the engine's runtime configuration from environment
// variables. ParseString logs where each value came from; ParseInt and
// ParseDuration log values taken from the environment and warn on invalid
// ones; ParseBool logs only invalid values. Load never
// exits the process; validation errors are returned to the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/thestuu/engine/internal/obslog"
)

var log = obslog.New("config")

// Config holds every recognized runtime option.
type Config struct {
	EngineHost         string
	EnginePort         int
	ProjectDir         string
	BackendSocketPath  string
	BackendEnabled     bool
	RequestTimeout     time.Duration
	ReconnectDelay     time.Duration
	DefaultTrackCount  int
	DefaultProjectFile string
}

// Load builds a Config from environment variables, applies the documented
// defaults, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		EngineHost:         ParseString("THESTUU_ENGINE_HOST", "127.0.0.1"),
		EnginePort:         ParseInt("THESTUU_ENGINE_PORT", 7777),
		ProjectDir:         ParseString("THESTUU_PROJECT_DIR", "./projects"),
		BackendSocketPath:  ParseString("THESTUU_BACKEND_SOCKET", "/tmp/thestuu-native.sock"),
		BackendEnabled:     ParseBool("THESTUU_BACKEND_ENABLED", true),
		RequestTimeout:     ParseDuration("THESTUU_REQUEST_TIMEOUT", 2*time.Second),
		ReconnectDelay:     ParseDuration("THESTUU_RECONNECT_DELAY", 750*time.Millisecond),
		DefaultTrackCount:  ParseInt("THESTUU_DEFAULT_TRACK_COUNT", 4),
		DefaultProjectFile: ParseString("THESTUU_DEFAULT_PROJECT", "welcome.stu"),
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("config: %s", joinErrors(errs))
	}
	return cfg, nil
}

// Validate reports every invalid option rather than stopping at the first,
// mirroring internal/model.Validate's concatenated-error-list shape.
func (c Config) Validate() []error {
	var errs []error
	if c.EnginePort <= 0 || c.EnginePort > 65535 {
		errs = append(errs, fmt.Errorf("engine port %d out of range", c.EnginePort))
	}
	if strings.TrimSpace(c.ProjectDir) == "" {
		errs = append(errs, fmt.Errorf("project directory must not be empty"))
	}
	if strings.TrimSpace(c.BackendSocketPath) == "" {
		errs = append(errs, fmt.Errorf("backend socket path must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive"))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("reconnect delay must be positive"))
	}
	if c.DefaultTrackCount < 1 {
		errs = append(errs, fmt.Errorf("default track count must be >= 1"))
	}
	return errs
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// ParseString reads a string env var, logging whether it came from the
// environment or the default.
func ParseString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		log.Debug().Str("key", key).Str("source", "environment").Msg("config value")
		return v
	}
	log.Debug().Str("key", key).Str("default", defaultValue).Str("source", "default").Msg("config value")
	return defaultValue
}

// ParseInt reads an integer env var, falling back to the default on a
// missing or unparsable value.
func ParseInt(key string, defaultValue int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			log.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("config value")
			return i
		}
		log.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).Msg("invalid integer, using default")
	}
	return defaultValue
}

// ParseBool reads a boolean env var ("true"/"false"/"1"/"0"/"yes"/"no",
// case-insensitive), falling back to the default on a missing or
// unparsable value.
func ParseBool(key string, defaultValue bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
		log.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).Msg("invalid boolean, using default")
	}
	return defaultValue
}

// ParseDuration reads a Go duration-formatted env var (e.g. "750ms"),
// falling back to the default on a missing or unparsable value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			log.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("config value")
			return d
		}
		log.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).Msg("invalid duration, using default")
	}
	return defaultValue
}
