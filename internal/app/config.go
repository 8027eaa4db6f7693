package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:5001"

// Config holds the offer server configuration, loadable from environment
// variables (OFFERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:5001" usage:"API server listen address"`
	MaxBodyBytes int64  `default:"1048576" usage:"Maximum request body size in bytes" flag:"max-body-bytes"`
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
	Health       HealthConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// HealthConfig controls background health checks.
type HealthConfig struct {
	Interval      time.Duration `default:"10s"   usage:"Health check interval"`
	MaxGoroutines int           `default:"10000" usage:"Liveness fails above this goroutine count" flag:"max-goroutines"`
	MaxGCPause    time.Duration `default:"1s"    usage:"Liveness fails when a GC pause exceeds this" flag:"max-gc-pause"`
	MaxEntries    int           `default:"0"     usage:"Readiness fails when a store holds more entries, 0 disables" flag:"max-entries"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "OFFERS",
		Files:     []string{"config.yaml", "/etc/offers/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// unless an explicit address was configured.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Health.Interval <= 0 {
		return errors.Errorf("health interval must be positive, got %s", c.Health.Interval)
	}
	return nil
}
