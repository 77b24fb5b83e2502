// Package config provides configuration for the captchauth server.
//
// Configuration is loaded in layers:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CAPTCHAUTH_CONFIG, ./captchauth.yaml)
//  3. Environment variable overrides (CAPTCHAUTH_ prefix, plus REDIS_URL)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/layer-3/captchauth/service"
)

// Config holds all configuration for the server.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Log         LogConfig          `yaml:"log"`
	Challenge   ChallengeConfig    `yaml:"challenge"`
	Fields      service.FieldNames `yaml:"fields"`
	Credentials CredentialsConfig  `yaml:"credentials"`
	Secret      SecretConfig       `yaml:"secret"`
	Session     SessionConfig      `yaml:"session"`
	Redis       RedisConfig        `yaml:"redis"`
	Events      EventsConfig       `yaml:"events"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`          // default: ":9000"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 5s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
	SessionCookie   string        `yaml:"session_cookie"`   // default: "captchauth_session"
	SecureCookie    bool          `yaml:"secure_cookie"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; default: "info"
	Format string `yaml:"format"` // "text" or "json"; empty picks by terminal
}

// ChallengeConfig holds challenge issuing and storage settings.
type ChallengeConfig struct {
	Backend       string        `yaml:"backend"` // "memory" or "redis", default: "memory"
	TTL           time.Duration `yaml:"ttl"`     // default: 5m
	Length        int           `yaml:"length"`  // default: 4
	Alphabet      string        `yaml:"alphabet"`
	ExposeCode    bool          `yaml:"expose_code"`    // development only
	SweepInterval time.Duration `yaml:"sweep_interval"` // memory backend, default: 1m
	RedisPrefix   string        `yaml:"redis_prefix"`
}

// CredentialsConfig selects the principal store.
type CredentialsConfig struct {
	Backend  string         `yaml:"backend"` // "memory", "sqlite" or "postgres", default: "sqlite"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	// Users seeds the memory backend.
	Users []UserConfig `yaml:"users"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "captchauth.db"
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	DSN            string        `yaml:"dsn"`
	DSNFile        string        `yaml:"dsn_file"`
	MaxConns       int32         `yaml:"max_conns"`
	MaxConnLife    time.Duration `yaml:"max_conn_lifetime"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
}

// UserConfig is a statically configured principal.
type UserConfig struct {
	ID         string   `yaml:"id"`
	SecretHash string   `yaml:"secret_hash"`
	Roles      []string `yaml:"roles"`
}

// SecretConfig holds secret verification settings.
type SecretConfig struct {
	Scheme string `yaml:"scheme"` // "bcrypt", "argon2id" or "plaintext", default: "bcrypt"
	// Decoy runs a verification against a fixed hash for unknown identifiers.
	Decoy bool `yaml:"decoy"`
	// FailureFloor pads failed attempts to a minimum duration.
	FailureFloor time.Duration `yaml:"failure_floor"`
}

// SessionConfig holds token settings.
type SessionConfig struct {
	Issuer         string        `yaml:"issuer"`           // default: "captchauth"
	SigningKeyFile string        `yaml:"signing_key_file"` // PEM EC key; generated per process when empty
	AccessTTL      time.Duration `yaml:"access_ttl"`       // default: 5m
	RefreshTTL     time.Duration `yaml:"refresh_ttl"`      // default: 120h
	Revocation     string        `yaml:"revocation"`       // "memory" or "redis", default: "memory"
	SweepInterval  time.Duration `yaml:"sweep_interval"`   // memory revocation backend, default: 1m
}

// RedisConfig holds the shared Redis connection.
type RedisConfig struct {
	URL     string `yaml:"url"` // default: "redis://localhost:6379/0"
	URLFile string `yaml:"url_file"`
}

// EventsConfig holds event publishing settings.
type EventsConfig struct {
	Enabled bool `yaml:"enabled"` // publishes to Redis streams
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":9000",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionCookie:   "captchauth_session",
		},
		Log: LogConfig{
			Level: "info",
		},
		Challenge: ChallengeConfig{
			Backend:       "memory",
			TTL:           service.DefaultChallengeTTL,
			Length:        4,
			Alphabet:      "0123456789",
			SweepInterval: time.Minute,
			RedisPrefix:   "captchauth:challenge:",
		},
		Fields: service.DefaultFieldNames,
		Credentials: CredentialsConfig{
			Backend: "sqlite",
			SQLite: SQLiteConfig{
				Path: "captchauth.db",
			},
			Postgres: PostgresConfig{
				MaxConns:    10,
				MaxConnLife: 5 * time.Minute,
			},
		},
		Secret: SecretConfig{
			Scheme: "bcrypt",
		},
		Session: SessionConfig{
			Issuer:        "captchauth",
			AccessTTL:     service.DefaultAccessTTL,
			RefreshTTL:    service.DefaultRefreshTTL,
			Revocation:    "memory",
			SweepInterval: time.Minute,
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// NeedsRedis reports whether any component is backed by Redis.
func (c *Config) NeedsRedis() bool {
	return c.Challenge.Backend == "redis" || c.Session.Revocation == "redis" || c.Events.Enabled
}
