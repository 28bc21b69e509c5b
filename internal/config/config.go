package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr string

	// Store
	DataDir string

	// Auth
	APIToken string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentBuild int
	JobTTL             time.Duration

	// Introspection
	LeanBin           string
	LeanTimeout       time.Duration
	LeanMemoryMB      int
	RunnerStatsWindow time.Duration

	// Ingest and graph build
	CriteriaFile          string
	AggregateConstructors bool
	SkipAuxiliary         bool
	SkipStructural        bool
	ComponentCacheSize    int

	// Upload limits
	MaxUploadBytes int64

	// HTTP server timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func Load() Config {
	cfg := Config{
		Addr: envOr("LEANGRAPH_ADDR", ":8080"),

		DataDir: envOr("LEANGRAPH_DATA_DIR", "./data"),

		APIToken: os.Getenv("LEANGRAPH_API_TOKEN"),

		WorkerCount:        envInt("LEANGRAPH_WORKERS", 2),
		MaxQueueSize:       envInt("LEANGRAPH_QUEUE_SIZE", 16),
		MaxConcurrentBuild: envInt("LEANGRAPH_MAX_CONCURRENT_BUILD", 4),
		JobTTL:             envDuration("LEANGRAPH_JOB_TTL", 24*time.Hour),

		LeanBin:           envOr("LEANGRAPH_LEAN_BIN", "lean"),
		LeanTimeout:       envDuration("LEANGRAPH_LEAN_TIMEOUT", 10*time.Minute),
		LeanMemoryMB:      envInt("LEANGRAPH_LEAN_MEMORY_MB", 4096),
		RunnerStatsWindow: envDuration("LEANGRAPH_RUNNER_STATS_WINDOW", time.Hour),

		CriteriaFile:          os.Getenv("LEANGRAPH_CRITERIA_FILE"),
		AggregateConstructors: envBool("LEANGRAPH_AGGREGATE_CONSTRUCTORS", false),
		SkipAuxiliary:         envBool("LEANGRAPH_SKIP_AUXILIARY", false),
		SkipStructural:        envBool("LEANGRAPH_SKIP_STRUCTURAL", false),
		ComponentCacheSize:    envInt("LEANGRAPH_COMPONENT_CACHE", 1024),

		MaxUploadBytes: envInt64("LEANGRAPH_MAX_UPLOAD_MB", 256) * 1024 * 1024,

		ReadTimeout:  envDuration("LEANGRAPH_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: envDuration("LEANGRAPH_WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:  envDuration("LEANGRAPH_IDLE_TIMEOUT", 120*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.MaxConcurrentBuild <= 0 {
		cfg.MaxConcurrentBuild = 4
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}
	if cfg.LeanTimeout <= 0 {
		cfg.LeanTimeout = 10 * time.Minute
	}
	if cfg.ComponentCacheSize <= 0 {
		cfg.ComponentCacheSize = 1024
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 256 * 1024 * 1024
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("LEANGRAPH_DATA_DIR is required")
	}
	if c.LeanBin == "" {
		return fmt.Errorf("LEANGRAPH_LEAN_BIN is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
