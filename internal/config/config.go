// Package config provides hierarchical configuration loading for BenchForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the BenchForge builder.
type Config struct {
	Logging   Logging   `yaml:"logging"`
	GitHub    GitHub    `yaml:"github"`
	Git       Git       `yaml:"git"`
	Cache     Cache     `yaml:"cache"`
	Rate      Rate      `yaml:"rate"`
	Sandbox   Sandbox   `yaml:"sandbox"`
	Executor  Executor  `yaml:"executor"`
	Build     Build     `yaml:"build"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// GitHub holds the code-hosting API client configuration. The API token is
// not configured here; it is read from the secrets vault.
type GitHub struct {
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DiffCacheTTL   time.Duration `yaml:"diff_cache_ttl"`
}

// Git holds version-control tool configuration.
type Git struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	OpTimeout     time.Duration `yaml:"op_timeout"`
	CloneDepth    int           `yaml:"clone_depth"`
}

// Cache holds in-process cache sizing.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Rate holds the outbound API rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Sandbox holds isolation strategy selection and container resource limits.
type Sandbox struct {
	Strategy       string        `yaml:"strategy"` // "auto" | "docker" | "process"
	Image          string        `yaml:"image"`
	MemoryMB       int           `yaml:"memory_mb"`
	CPUQuota       int           `yaml:"cpu_quota"`
	PidsLimit      int           `yaml:"pids_limit"`
	NetworkMode    string        `yaml:"network_mode"`
	WorkRoot       string        `yaml:"work_root"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// Executor holds test invocation configuration.
type Executor struct {
	Timeout       time.Duration `yaml:"timeout"`
	ExtraPackages []string      `yaml:"extra_packages"`
}

// Build holds dataset assembly configuration.
type Build struct {
	OutputDir          string        `yaml:"output_dir"`
	Difficulty         string        `yaml:"difficulty"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	MaterializeRetries int           `yaml:"materialize_retries"`
	RetryBase          time.Duration `yaml:"retry_base"`
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local use.
func Defaults() Config {
	return Config{
		Logging: Logging{
			Level:   "info",
			Service: "benchforge",
		},
		GitHub: GitHub{
			APIURL:         "https://api.github.com",
			RequestTimeout: 30 * time.Second,
			DiffCacheTTL:   time.Hour,
		},
		Git: Git{
			MaxConcurrent: 4,
			OpTimeout:     10 * time.Minute,
			CloneDepth:    100,
		},
		Cache: Cache{
			MaxSizeMB: 64,
		},
		Rate: Rate{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Sandbox: Sandbox{
			Strategy:       "auto",
			Image:          "python:3.11-slim",
			MemoryMB:       4096,
			CPUQuota:       2000,
			PidsLimit:      2048,
			NetworkMode:    "bridge",
			AcquireTimeout: 2 * time.Minute,
		},
		Executor: Executor{
			Timeout:       10 * time.Minute,
			ExtraPackages: []string{"pytest", "hypothesis", "pyarrow"},
		},
		Build: Build{
			OutputDir:          "output",
			Difficulty:         "medium",
			MaxConcurrent:      1,
			MaterializeRetries: 3,
			RetryBase:          time.Second,
		},
		Telemetry: Telemetry{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Insecure: true,
		},
	}
}
