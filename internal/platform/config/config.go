// Package config loads process configuration from the environment so main
// stays lean. Every knob has a development-friendly default; production
// deployments override through EXPOSURESCAN_* variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// PostgresURL enables the durable report store. Empty means in-memory.
	PostgresURL string

	Redis RedisConfig

	Scan ScanConfig
}

// RedisConfig configures the optional evidence cache backend. An empty URL
// selects the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ScanConfig holds the scheduler knobs and the evidence cache TTL.
type ScanConfig struct {
	PerSourceTimeout time.Duration
	ScanDeadline     time.Duration
	MaxParallelism   int
	CacheTTL         time.Duration
	StubLatency      time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        envOr("EXPOSURESCAN_ADDR", ":8080"),
		PostgresURL: os.Getenv("EXPOSURESCAN_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("EXPOSURESCAN_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	var err error
	if cfg.Scan.PerSourceTimeout, err = envDuration("EXPOSURESCAN_SOURCE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Scan.ScanDeadline, err = envDuration("EXPOSURESCAN_SCAN_DEADLINE", 15*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Scan.CacheTTL, err = envDuration("EXPOSURESCAN_CACHE_TTL", 5*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.Scan.StubLatency, err = envDuration("EXPOSURESCAN_STUB_LATENCY", 50*time.Millisecond); err != nil {
		return Server{}, err
	}
	if cfg.Scan.MaxParallelism, err = envInt("EXPOSURESCAN_MAX_PARALLELISM", 8); err != nil {
		return Server{}, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
