// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Relay backends
const (
	RelayLocal    = "local"
	RelayRedis    = "redis"
	RelayPostgres = "postgres"
)

type Config struct {
	Port              int
	DatabaseURL       string
	DatabaseType      string
	AdminKeySalt      string
	FingerprintSalt   string
	Relay             string
	RedisURL          string
	PingInterval      time.Duration
	DisconnectTimeout time.Duration
	ReconcileInterval time.Duration
	LogLevel          string
	AllowedOrigins    []string
}

// fileConfig mirrors Config for the optional YAML file. Durations are
// strings ("5s", "1m") so they read naturally in the file.
type fileConfig struct {
	Port              int      `yaml:"port"`
	DatabaseURL       string   `yaml:"database_url"`
	DatabaseType      string   `yaml:"database_type"`
	AdminKeySalt      string   `yaml:"admin_key_salt"`
	FingerprintSalt   string   `yaml:"fingerprint_salt"`
	Relay             string   `yaml:"relay"`
	RedisURL          string   `yaml:"redis_url"`
	PingInterval      string   `yaml:"ping_interval"`
	DisconnectTimeout string   `yaml:"disconnect_timeout"`
	ReconcileInterval string   `yaml:"reconcile_interval"`
	LogLevel          string   `yaml:"log_level"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags builds the Config. Each setting is taken from the first source
// that has it: command-line flag, environment variable, YAML config file
// (-c or CONFIG_FILE), built-in default.
func ParseFlags(args []string) (Config, error) {
	var flags fileConfig
	var port, origins, configFile string

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	fs.StringVar(&configFile, "c", "", "YAML config file")
	fs.StringVar(&port, "p", "", "Server port")
	fs.StringVar(&flags.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&flags.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&flags.Relay, "relay", "", "Vote relay (local, redis or postgres)")
	fs.StringVar(&flags.RedisURL, "redis-url", "", "Redis URL for the redis relay")
	fs.StringVar(&flags.PingInterval, "ping-interval", "", "Session heartbeat interval")
	fs.StringVar(&flags.DisconnectTimeout, "disconnect-timeout", "", "Silence after which a session is dropped")
	fs.StringVar(&flags.ReconcileInterval, "reconcile-interval", "", "Counter reconciliation interval (0 disables)")
	fs.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&origins, "origins", "", "Comma separated CORS origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&flags.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&flags.FingerprintSalt, "fingerprint-salt", "", "IP fingerprint salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var file fileConfig
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	filePort := ""
	if file.Port != 0 {
		filePort = strconv.Itoa(file.Port)
	}

	var cfg Config
	var err error

	cfg.Port, err = strconv.Atoi(pick(port, "PORT", filePort, "3318"))
	if err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("invalid port")
	}

	cfg.DatabaseURL = pick(flags.DatabaseURL, "DATABASE_URL", file.DatabaseURL, "")
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	cfg.DatabaseType = pick(flags.DatabaseType, "DATABASE_TYPE", file.DatabaseType, "sqlite")
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	cfg.AdminKeySalt = pick(flags.AdminKeySalt, "ADMIN_KEY_SALT", file.AdminKeySalt, "")
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}
	cfg.FingerprintSalt = pick(flags.FingerprintSalt, "FINGERPRINT_SALT", file.FingerprintSalt, cfg.AdminKeySalt)

	cfg.Relay = pick(flags.Relay, "RELAY", file.Relay, RelayLocal)
	cfg.RedisURL = pick(flags.RedisURL, "REDIS_URL", file.RedisURL, "")
	switch cfg.Relay {
	case RelayLocal:
	case RelayRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL required for the redis relay")
		}
	case RelayPostgres:
		if cfg.DatabaseType != "postgres" {
			return Config{}, errors.New("the postgres relay requires DATABASE_TYPE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unsupported relay %q", cfg.Relay)
	}

	if cfg.PingInterval, err = parseDuration("ping interval", pick(flags.PingInterval, "PING_INTERVAL", file.PingInterval, "5s")); err != nil {
		return Config{}, err
	}
	if cfg.DisconnectTimeout, err = parseDuration("disconnect timeout", pick(flags.DisconnectTimeout, "DISCONNECT_TIMEOUT", file.DisconnectTimeout, "10s")); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval, err = parseDuration("reconcile interval", pick(flags.ReconcileInterval, "RECONCILE_INTERVAL", file.ReconcileInterval, "1m")); err != nil {
		return Config{}, err
	}
	if cfg.PingInterval <= 0 {
		return Config{}, errors.New("ping interval must be positive")
	}
	if cfg.DisconnectTimeout <= cfg.PingInterval {
		return Config{}, errors.New("disconnect timeout must exceed the ping interval")
	}

	cfg.LogLevel = strings.ToLower(pick(flags.LogLevel, "LOG_LEVEL", file.LogLevel, "info"))

	fileOrigins := strings.Join(file.AllowedOrigins, ",")
	cfg.AllowedOrigins = splitList(pick(origins, "ALLOWED_ORIGINS", fileOrigins, "*"))

	return cfg, nil
}

func pick(flagVal, envKey, fileVal, def string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
