package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CAPTCHAUTH_CONFIG env, ./captchauth.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the explicit path, then CAPTCHAUTH_CONFIG, then
// ./captchauth.yaml if it exists. Returns empty string if none applies.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("CAPTCHAUTH_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("captchauth.yaml"); err == nil {
		return "captchauth.yaml"
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"CAPTCHAUTH_ADDRESS":             &cfg.Server.Address,
		"CAPTCHAUTH_LOG_LEVEL":           &cfg.Log.Level,
		"CAPTCHAUTH_LOG_FORMAT":          &cfg.Log.Format,
		"CAPTCHAUTH_CHALLENGE_BACKEND":   &cfg.Challenge.Backend,
		"CAPTCHAUTH_CREDENTIALS_BACKEND": &cfg.Credentials.Backend,
		"CAPTCHAUTH_SQLITE_PATH":         &cfg.Credentials.SQLite.Path,
		"CAPTCHAUTH_POSTGRES_DSN":        &cfg.Credentials.Postgres.DSN,
		"CAPTCHAUTH_SECRET_SCHEME":       &cfg.Secret.Scheme,
		"CAPTCHAUTH_SIGNING_KEY_FILE":    &cfg.Session.SigningKeyFile,
		"CAPTCHAUTH_REVOCATION_BACKEND":  &cfg.Session.Revocation,
		"REDIS_URL":                      &cfg.Redis.URL,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	bools := map[string]*bool{
		"CAPTCHAUTH_EXPOSE_CHALLENGE": &cfg.Challenge.ExposeCode,
		"CAPTCHAUTH_EVENTS_ENABLED":   &cfg.Events.Enabled,
		"CAPTCHAUTH_METRICS_ENABLED":  &cfg.Metrics.Enabled,
		"CAPTCHAUTH_SECURE_COOKIE":    &cfg.Server.SecureCookie,
	}
	for name, field := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = b
		}
	}

	durations := map[string]*time.Duration{
		"CAPTCHAUTH_CHALLENGE_TTL": &cfg.Challenge.TTL,
		"CAPTCHAUTH_ACCESS_TTL":    &cfg.Session.AccessTTL,
		"CAPTCHAUTH_REFRESH_TTL":   &cfg.Session.RefreshTTL,
		"CAPTCHAUTH_FAILURE_FLOOR": &cfg.Secret.FailureFloor,
	}
	for name, field := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = d
		}
	}

	return nil
}

// resolveFileReferences reads _file fields into their empty value fields.
func resolveFileReferences(cfg *Config) error {
	// credentials.postgres.dsn_file -> credentials.postgres.dsn
	if cfg.Credentials.Postgres.DSNFile != "" && cfg.Credentials.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Credentials.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("credentials.postgres.dsn_file: %w", err)
		}
		cfg.Credentials.Postgres.DSN = val
	}

	// redis.url_file -> redis.url, which always has a default
	if cfg.Redis.URLFile != "" {
		val, err := readSecretFile(cfg.Redis.URLFile)
		if err != nil {
			return fmt.Errorf("redis.url_file: %w", err)
		}
		cfg.Redis.URL = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
