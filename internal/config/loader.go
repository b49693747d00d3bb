package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "benchforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Logging.Level, "BENCHFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BENCHFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BENCHFORGE_LOG_ASYNC")

	setString(&cfg.GitHub.APIURL, "BENCHFORGE_GITHUB_API_URL")
	setDuration(&cfg.GitHub.RequestTimeout, "BENCHFORGE_GITHUB_TIMEOUT")
	setDuration(&cfg.GitHub.DiffCacheTTL, "BENCHFORGE_GITHUB_DIFF_TTL")

	setInt(&cfg.Git.MaxConcurrent, "BENCHFORGE_GIT_MAX_CONCURRENT")
	setDuration(&cfg.Git.OpTimeout, "BENCHFORGE_GIT_OP_TIMEOUT")
	setInt(&cfg.Git.CloneDepth, "BENCHFORGE_GIT_CLONE_DEPTH")

	setInt64(&cfg.Cache.MaxSizeMB, "BENCHFORGE_CACHE_SIZE_MB")

	setFloat64(&cfg.Rate.RequestsPerSecond, "BENCHFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "BENCHFORGE_RATE_BURST")

	setString(&cfg.Sandbox.Strategy, "BENCHFORGE_SANDBOX_STRATEGY")
	setString(&cfg.Sandbox.Image, "BENCHFORGE_SANDBOX_IMAGE")
	setInt(&cfg.Sandbox.MemoryMB, "BENCHFORGE_SANDBOX_MEMORY_MB")
	setInt(&cfg.Sandbox.CPUQuota, "BENCHFORGE_SANDBOX_CPU_QUOTA")
	setInt(&cfg.Sandbox.PidsLimit, "BENCHFORGE_SANDBOX_PIDS_LIMIT")
	setString(&cfg.Sandbox.NetworkMode, "BENCHFORGE_SANDBOX_NETWORK")
	setString(&cfg.Sandbox.WorkRoot, "BENCHFORGE_SANDBOX_WORK_ROOT")
	setDuration(&cfg.Sandbox.AcquireTimeout, "BENCHFORGE_SANDBOX_ACQUIRE_TIMEOUT")

	setDuration(&cfg.Executor.Timeout, "BENCHFORGE_EXEC_TIMEOUT")

	setString(&cfg.Build.OutputDir, "BENCHFORGE_BUILD_OUTPUT_DIR")
	setString(&cfg.Build.Difficulty, "BENCHFORGE_BUILD_DIFFICULTY")
	setInt(&cfg.Build.MaxConcurrent, "BENCHFORGE_BUILD_MAX_CONCURRENT")
	setInt(&cfg.Build.MaterializeRetries, "BENCHFORGE_BUILD_RETRIES")
	setDuration(&cfg.Build.RetryBase, "BENCHFORGE_BUILD_RETRY_BASE")

	setBool(&cfg.Telemetry.Enabled, "BENCHFORGE_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "BENCHFORGE_OTEL_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "BENCHFORGE_OTEL_INSECURE")
}

// validate checks that required fields are set and enums are known.
func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	if cfg.GitHub.APIURL == "" {
		return errors.New("github.api_url is required")
	}
	if cfg.Git.MaxConcurrent < 1 {
		return errors.New("git.max_concurrent must be >= 1")
	}
	if cfg.Git.CloneDepth < 1 {
		return errors.New("git.clone_depth must be >= 1")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	switch cfg.Sandbox.Strategy {
	case "auto", "docker", "process":
	default:
		return fmt.Errorf("sandbox.strategy %q is not one of auto, docker, process", cfg.Sandbox.Strategy)
	}
	if cfg.Sandbox.Image == "" {
		return errors.New("sandbox.image is required")
	}
	if cfg.Sandbox.CPUQuota < 1 {
		return errors.New("sandbox.cpu_quota must be >= 1 millicore")
	}
	if cfg.Executor.Timeout <= 0 {
		return errors.New("executor.timeout must be positive")
	}
	switch cfg.Build.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("build.difficulty %q is not one of easy, medium, hard", cfg.Build.Difficulty)
	}
	if cfg.Build.MaxConcurrent < 1 {
		return errors.New("build.max_concurrent must be >= 1")
	}
	if cfg.Build.MaterializeRetries < 0 {
		return errors.New("build.materialize_retries must be >= 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
