package config

import (
	"os"
	"strconv"
	"time"

	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// envString reads a string override, logging where the value came from.
func envString(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	logger := log.WithComponent("config")
	logger.Debug().
		Str("key", key).
		Str("source", "environment").
		Msg("using environment override")
	return v
}

// envInt reads an integer override, keeping the fallback on bad input.
func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	logger := log.WithComponent("config")
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid integer in environment, keeping previous value")
		return fallback
	}
	logger.Debug().
		Str("key", key).
		Str("source", "environment").
		Msg("using environment override")
	return i
}

// envDuration reads a Go duration override ("90s", "12h").
func envDuration(key string, fallback Duration) Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	logger := log.WithComponent("config")
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid duration in environment, keeping previous value")
		return fallback
	}
	logger.Debug().
		Str("key", key).
		Str("source", "environment").
		Msg("using environment override")
	return Duration(d)
}
