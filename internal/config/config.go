package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"CACHE_ENV"`
	LogLevel string `mapstructure:"CACHE_LOG_LEVEL"`
	HTTPAddr string `mapstructure:"CACHE_HTTP_ADDR"`

	RequestTimeout time.Duration `mapstructure:"CACHE_REQUEST_TIMEOUT"`

	Backend  BackendConfig  `mapstructure:",squash"`
	Adapter  AdapterConfig  `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type BackendConfig struct {
	Kind            string        `mapstructure:"CACHE_BACKEND"` // "redis", "memory"
	RedisURL        string        `mapstructure:"CACHE_REDIS_URL"`
	RedisHost       string        `mapstructure:"CACHE_REDIS_HOST"`
	RedisPort       int           `mapstructure:"CACHE_REDIS_PORT"`
	RedisCluster    bool          `mapstructure:"CACHE_REDIS_CLUSTER"`
	JanitorInterval time.Duration `mapstructure:"CACHE_MEMORY_JANITOR_INTERVAL"`
}

type AdapterConfig struct {
	ScanCount int64 `mapstructure:"CACHE_SCAN_COUNT"` // SCAN COUNT hint and bulk page size
	HashSlot  bool  `mapstructure:"CACHE_HASH_SLOT"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"CACHE_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"CACHE_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // variables already set in the environment win
		}
	}
}

// Load reads the configuration from the environment, after merging any .env
// file found next to the working directory.
func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("CACHE_ENV", "dev")
	v.SetDefault("CACHE_LOG_LEVEL", "")
	v.SetDefault("CACHE_HTTP_ADDR", ":6363")
	v.SetDefault("CACHE_REQUEST_TIMEOUT", "30s")
	v.SetDefault("CACHE_BACKEND", string(kv.BackendRedis))
	v.SetDefault("CACHE_REDIS_URL", "")
	v.SetDefault("CACHE_REDIS_HOST", "127.0.0.1")
	v.SetDefault("CACHE_REDIS_PORT", 6379)
	v.SetDefault("CACHE_REDIS_CLUSTER", false)
	v.SetDefault("CACHE_MEMORY_JANITOR_INTERVAL", "30s")
	v.SetDefault("CACHE_SCAN_COUNT", 10000)
	v.SetDefault("CACHE_HASH_SLOT", true)
	v.SetDefault("CACHE_RATE_LIMIT_RPM", 600)
	v.SetDefault("CACHE_CORS_ALLOWED_ORIGINS", "*")

	// Handle array parsing for comma-separated values
	if origins := v.GetString("CACHE_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("CACHE_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch kv.Backend(c.Backend.Kind) {
	case kv.BackendRedis:
		if c.Backend.RedisURL == "" && c.Backend.RedisHost == "" {
			return fmt.Errorf("CACHE_REDIS_URL or CACHE_REDIS_HOST is required for the redis backend")
		}
		if c.Backend.RedisURL == "" && (c.Backend.RedisPort <= 0 || c.Backend.RedisPort > 65535) {
			return fmt.Errorf("invalid CACHE_REDIS_PORT %d", c.Backend.RedisPort)
		}
	case kv.BackendMemory:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q (must be redis or memory)", c.Backend.Kind)
	}
	if c.Adapter.ScanCount <= 0 {
		return fmt.Errorf("CACHE_SCAN_COUNT must be positive, got %d", c.Adapter.ScanCount)
	}
	if c.Security.RateLimitRPM < 0 {
		return fmt.Errorf("CACHE_RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// RedisAddress is CACHE_REDIS_URL when set, otherwise host:port
func (b BackendConfig) RedisAddress() string {
	if b.RedisURL != "" {
		return b.RedisURL
	}
	return net.JoinHostPort(b.RedisHost, fmt.Sprint(b.RedisPort))
}

// KV converts the backend settings into a kv.Config
func (c *Config) KV() kv.Config {
	cfg := kv.Config{
		Backend:         kv.Backend(c.Backend.Kind),
		JanitorInterval: c.Backend.JanitorInterval,
	}
	if cfg.Backend == kv.BackendRedis {
		cfg.RedisURL = c.Backend.RedisAddress()
		cfg.RedisCluster = c.Backend.RedisCluster
	}
	return cfg
}
