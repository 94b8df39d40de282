// Package config loads service configuration from an optional YAML file with
// environment overrides. Env always wins so deploys can tweak a single knob
// without shipping a new file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"binroute/internal/opt"
)

// Config is the full service configuration.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Auth struct {
		Mode       string `yaml:"mode"` // dev or hmac
		HMACSecret string `yaml:"hmacSecret"`
	} `yaml:"auth"`

	Rate struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate"`

	// OptimizeTimeoutSec bounds one optimization run's wall clock.
	OptimizeTimeoutSec int `yaml:"optimizeTimeoutSec"`

	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// OptimizerConfig overrides individual tuning constants; zero values keep
// the defaults.
type OptimizerConfig struct {
	AverageSpeedKmh       float64 `yaml:"averageSpeedKmh"`
	ServiceMinutesPerStop float64 `yaml:"serviceMinutesPerStop"`
	ScavengePassFactor    int     `yaml:"scavengePassFactor"`
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and applies env overrides.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.Port = envOr("PORT", defStr(cfg.Port, "8080"))
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	cfg.Auth.Mode = envOr("AUTH_MODE", defStr(cfg.Auth.Mode, "dev"))
	cfg.Auth.HMACSecret = envOr("AUTH_HMAC_SECRET", cfg.Auth.HMACSecret)
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rate.RPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rate.Burst = n
		}
	}
	if v := os.Getenv("OPTIMIZE_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OptimizeTimeoutSec = n
		}
	}
	if cfg.Rate.RPS <= 0 {
		cfg.Rate.RPS = 50
	}
	if cfg.Rate.Burst <= 0 {
		cfg.Rate.Burst = 100
	}
	if cfg.OptimizeTimeoutSec <= 0 {
		cfg.OptimizeTimeoutSec = 30
	}
	return cfg, nil
}

// Tuning merges the optimizer overrides onto the default tuning.
func (c Config) Tuning() opt.Tuning {
	t := opt.DefaultTuning()
	if c.Optimizer.AverageSpeedKmh > 0 {
		t.AverageSpeedKmh = c.Optimizer.AverageSpeedKmh
	}
	if c.Optimizer.ServiceMinutesPerStop > 0 {
		t.ServiceMinutesPerStop = c.Optimizer.ServiceMinutesPerStop
	}
	if c.Optimizer.ScavengePassFactor > 0 {
		t.ScavengePassFactor = c.Optimizer.ScavengePassFactor
	}
	return t
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
