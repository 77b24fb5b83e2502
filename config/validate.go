package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/captchauth/adapters/secret"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	switch c.Challenge.Backend {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("challenge.backend must be \"memory\" or \"redis\", got %q", c.Challenge.Backend))
	}
	if c.Challenge.TTL <= 0 {
		errs = append(errs, fmt.Errorf("challenge.ttl must be > 0, got %s", c.Challenge.TTL))
	}
	if c.Challenge.Length <= 0 {
		errs = append(errs, fmt.Errorf("challenge.length must be > 0, got %d", c.Challenge.Length))
	}
	if c.Challenge.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("challenge.sweep_interval must be > 0, got %s", c.Challenge.SweepInterval))
	}
	if len(c.Challenge.Alphabet) < 2 {
		errs = append(errs, errors.New("challenge.alphabet needs at least two symbols"))
	}

	if c.Fields.Identifier == c.Fields.Secret || c.Fields.Identifier == c.Fields.Challenge || c.Fields.Secret == c.Fields.Challenge {
		errs = append(errs, fmt.Errorf("fields must be distinct, got %+v", c.Fields))
	}

	switch c.Credentials.Backend {
	case "memory":
		for i, u := range c.Credentials.Users {
			if u.ID == "" || u.SecretHash == "" {
				errs = append(errs, fmt.Errorf("credentials.users[%d]: id and secret_hash are required", i))
			}
		}
	case "sqlite":
		if c.Credentials.SQLite.Path == "" {
			errs = append(errs, errors.New("credentials.sqlite.path is required when credentials.backend is \"sqlite\""))
		}
	case "postgres":
		if c.Credentials.Postgres.DSN == "" {
			errs = append(errs, errors.New("credentials.postgres.dsn or credentials.postgres.dsn_file is required when credentials.backend is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("credentials.backend must be \"memory\", \"sqlite\" or \"postgres\", got %q", c.Credentials.Backend))
	}

	if _, err := secret.New(c.Secret.Scheme); err != nil {
		errs = append(errs, fmt.Errorf("secret.scheme: %w", err))
	}
	if c.Secret.FailureFloor < 0 {
		errs = append(errs, fmt.Errorf("secret.failure_floor must be >= 0, got %s", c.Secret.FailureFloor))
	}

	if c.Session.AccessTTL <= 0 || c.Session.RefreshTTL <= 0 {
		errs = append(errs, errors.New("session.access_ttl and session.refresh_ttl must be > 0"))
	} else if c.Session.AccessTTL > c.Session.RefreshTTL {
		errs = append(errs, errors.New("session.access_ttl must not exceed session.refresh_ttl"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval must be > 0, got %s", c.Session.SweepInterval))
	}
	switch c.Session.Revocation {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, fmt.Errorf("session.revocation must be \"memory\" or \"redis\", got %q", c.Session.Revocation))
	}

	if c.NeedsRedis() && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when a redis backend or events are enabled"))
	}

	return errors.Join(errs...)
}
