// Package config loads process settings: defaults, then an optional TOML
// file, then environment variables (a local .env is read first). The
// rate-limit and lockout policy itself is static and lives in
// internal/ratelimit/config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileEnvVar names the environment variable holding the TOML overlay path.
const FileEnvVar = "ABUSEGUARD_CONFIG_FILE"

type Config struct {
	Environment string  `toml:"environment"`
	Server      Server  `toml:"server"`
	Log         Log     `toml:"log"`
	Admin       Admin   `toml:"admin"`
	Cleanup     Cleanup `toml:"cleanup"`
	Sentry      Sentry  `toml:"sentry"`
}

type Server struct {
	Addr            string        `toml:"addr"`
	TrustedProxies  []string      `toml:"trusted_proxies"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Admin configures the operator surface. An empty TokenHash disables it.
type Admin struct {
	TokenHash         string `toml:"token_hash"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

func (a Admin) Enabled() bool { return a.TokenHash != "" }

type Cleanup struct {
	Interval  time.Duration `toml:"interval"`
	Retention time.Duration `toml:"retention"`
}

type Sentry struct {
	DSN        string  `toml:"dsn"`
	SampleRate float64 `toml:"sample_rate"`
}

func Default() Config {
	return Config{
		Environment: "development",
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log:     Log{Level: "info", Format: "json"},
		Admin:   Admin{RequestsPerMinute: 30},
		Cleanup: Cleanup{Interval: time.Hour, Retention: time.Hour},
		Sentry:  Sentry{SampleRate: 1.0},
	}
}

// Load builds the process configuration. A missing .env is fine; a missing
// or malformed TOML file named by ABUSEGUARD_CONFIG_FILE is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(FileEnvVar); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile decodes a TOML file over cfg. Unknown keys are rejected so typos
// in security settings surface at startup.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENV", cfg.Environment)

	cfg.Server.Addr = getEnv("ABUSEGUARD_ADDR", cfg.Server.Addr)
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.Server.TrustedProxies = strings.Split(proxies, ",")
	}
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Admin.TokenHash = getEnv("ADMIN_TOKEN_HASH", cfg.Admin.TokenHash)
	cfg.Admin.RequestsPerMinute = getEnvAsInt("ADMIN_REQUESTS_PER_MINUTE", cfg.Admin.RequestsPerMinute)

	cfg.Cleanup.Interval = getEnvAsDuration("CLEANUP_INTERVAL", cfg.Cleanup.Interval)
	cfg.Cleanup.Retention = getEnvAsDuration("CLEANUP_RETENTION", cfg.Cleanup.Retention)

	cfg.Sentry.DSN = getEnv("SENTRY_DSN", cfg.Sentry.DSN)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Cleanup.Interval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	if c.Cleanup.Retention <= 0 {
		errs = append(errs, errors.New("cleanup retention must be positive"))
	}
	if c.Admin.Enabled() && c.Admin.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("admin requests per minute must be positive"))
	}
	if c.Admin.TokenHash != "" && !strings.HasPrefix(c.Admin.TokenHash, "$2") {
		errs = append(errs, errors.New("admin token hash must be a bcrypt hash (generate one with cmd/tokengen)"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
