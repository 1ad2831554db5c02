package resilience

import (
	"os"
	"strconv"
	"time"
)

const (
	EnvMaxRetries  = "GEMINI_MAX_RETRIES"
	EnvBackoffBase = "GEMINI_BACKOFF_BASE"
)

// FromEnv overrides cfg with GEMINI_MAX_RETRIES and GEMINI_BACKOFF_BASE
// (seconds, fractional allowed). Malformed values are ignored.
func FromEnv(cfg Config) Config {
	if raw, ok := os.LookupEnv(EnvMaxRetries); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}

	if raw, ok := os.LookupEnv(EnvBackoffBase); ok {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs >= 0 {
			cfg.BaseDelay = time.Duration(secs * float64(time.Second))
		}
	}

	return cfg
}
