package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// StripeConfig holds provider credentials. Both secrets may be left empty in
// the file and supplied via STRIPE_SECRET / STRIPE_WEBHOOK_SECRET; absence is
// surfaced as a configuration error at first use, not at startup.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// PlanConfig bounds and defaults for installment schedules.
type PlanConfig struct {
	MinCycles   int    `yaml:"min_cycles"`
	MaxCycles   int    `yaml:"max_cycles"`
	MinPerCycle int64  `yaml:"min_per_cycle"` // minor units, provider minimum chargeable
	Currency    string `yaml:"currency"`
	SuccessURL  string `yaml:"success_url"` // optional; derived from request host if empty
	CancelURL   string `yaml:"cancel_url"`
}

type DedupConfig struct {
	Backend string        `yaml:"backend"` // redis | postgres
	TTL     time.Duration `yaml:"ttl"`     // redis key retention
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// OpsConfig secures the operator endpoints (env probe).
type OpsConfig struct {
	Key           string        `yaml:"key"`            // shared login key
	SessionSecret string        `yaml:"session_secret"` // JWT HMAC secret
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Plan     PlanConfig     `yaml:"plan"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Ops      OpsConfig      `yaml:"ops"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Plan.MinCycles <= 0 {
		cfg.Plan.MinCycles = 2
	}
	if cfg.Plan.MaxCycles <= 0 {
		cfg.Plan.MaxCycles = 24
	}
	if cfg.Plan.MinPerCycle <= 0 {
		cfg.Plan.MinPerCycle = 50
	}
	if cfg.Plan.Currency == "" {
		cfg.Plan.Currency = "eur"
	}
	if cfg.Dedup.Backend == "" {
		cfg.Dedup.Backend = "redis"
	}
	if cfg.Dedup.TTL <= 0 {
		cfg.Dedup.TTL = 72 * time.Hour
	}
	if cfg.Ops.SessionTTL <= 0 {
		cfg.Ops.SessionTTL = 30 * time.Minute
	}

	// Secrets prefer the environment over the file.
	if v := os.Getenv("STRIPE_SECRET"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}

	// Minimal validation. Stripe secrets are deliberately not required here:
	// their absence must surface as a 500 at first use, not a startup crash.
	if cfg.Plan.MinCycles < 2 {
		return nil, errors.New("plan.min_cycles must be >= 2")
	}
	if cfg.Plan.MaxCycles < cfg.Plan.MinCycles {
		return nil, errors.New("plan.max_cycles must be >= plan.min_cycles")
	}
	switch cfg.Dedup.Backend {
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("redis.url is required when dedup.backend=redis")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("database.url is required when dedup.backend=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown dedup.backend %q", cfg.Dedup.Backend)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
