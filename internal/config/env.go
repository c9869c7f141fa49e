// Package config provides environment-variable helpers for binary
// configuration. Binaries use stdlib flag with these helpers as defaults, so
// every knob can be set either way.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file from the working directory when present.
// A missing file is not an error; explicit environment always wins.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Env returns the value of key, or def when unset or empty.
func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// EnvInt returns key parsed as int, or def when unset or unparsable.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvInt64 returns key parsed as int64, or def when unset or unparsable.
func EnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// EnvBool returns key parsed as bool, or def when unset or unparsable.
func EnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// EnvDur returns key parsed as a time.Duration, or def when unset or
// unparsable.
func EnvDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
