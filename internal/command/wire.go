package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/captchauth/adapters/challenge"
	"github.com/layer-3/captchauth/adapters/credentials"
	"github.com/layer-3/captchauth/adapters/events"
	"github.com/layer-3/captchauth/adapters/secret"
	"github.com/layer-3/captchauth/adapters/store"
	"github.com/layer-3/captchauth/adapters/tokenizer"
	"github.com/layer-3/captchauth/config"
	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
	"github.com/layer-3/captchauth/service"
)

// credentialBackend is a principal store that can also be administered
type credentialBackend interface {
	ports.CredentialStore
	ports.CredentialWriter
}

// app holds the wired components of a running server
type app struct {
	service *service.AuthService

	challenges  *challenge.MemoryStore // nil unless the memory backend is used
	revocations *store.MemoryStore     // nil unless the memory backend is used

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func openRedis(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// openCredentials opens the configured principal store and returns its closer
func openCredentials(ctx context.Context, cfg *config.Config, logger *slog.Logger) (credentialBackend, func() error, error) {
	switch cfg.Credentials.Backend {
	case "memory":
		principals := make([]core.Principal, 0, len(cfg.Credentials.Users))
		for _, u := range cfg.Credentials.Users {
			principals = append(principals, core.Principal{ID: u.ID, SecretHash: u.SecretHash, Roles: u.Roles})
		}
		return credentials.NewMemoryStore(principals...), func() error { return nil }, nil
	case "sqlite":
		s, err := credentials.OpenSQLite(ctx, logger, cfg.Credentials.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := credentials.OpenPostgres(ctx, credentials.PostgresConfig{
			DSN:             cfg.Credentials.Postgres.DSN,
			MaxConns:        cfg.Credentials.Postgres.MaxConns,
			MaxConnLifetime: cfg.Credentials.Postgres.MaxConnLife,
			MigrateOnStart:  cfg.Credentials.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}
}

// wire builds the authentication service from cfg
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &app{}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
		}
	}()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		if rdb, err = openRedis(cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		if err = rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
	}

	var challenges ports.ChallengeStore
	if cfg.Challenge.Backend == "redis" {
		challenges = challenge.NewRedisStore(rdb, cfg.Challenge.RedisPrefix)
	} else {
		a.challenges = challenge.NewMemoryStore()
		challenges = a.challenges
	}

	var revocations ports.Store
	if cfg.Session.Revocation == "redis" {
		revocations = store.NewRedisStore(rdb, "")
	} else {
		a.revocations = store.NewMemoryStore()
		revocations = a.revocations
	}

	creds, closeCreds, err := openCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCreds)

	hasher, err := secret.New(cfg.Secret.Scheme)
	if err != nil {
		return nil, err
	}

	var decoy string
	if cfg.Secret.Decoy {
		if decoy, err = hasher.Hash(uuid.NewString()); err != nil {
			return nil, fmt.Errorf("failed to hash decoy secret: %w", err)
		}
	}

	signKey, err := signingKey(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var eventPub ports.EventPublisher
	if cfg.Events.Enabled {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: rdb,
			},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		a.closers = append(a.closers, publisher.Close)
		eventPub = events.NewWatermillPublisher(publisher)
	}

	a.service = service.NewAuthService(service.Dependencies{
		Challenges:  challenges,
		Codes:       challenge.NewCodeGenerator(cfg.Challenge.Length, cfg.Challenge.Alphabet),
		Credentials: creds,
		Verifier:    hasher,
		Tokenizer:   tokenizer.NewJWTTokenizer(signKey, cfg.Session.Issuer),
		Store:       revocations,
		Events:      eventPub,
		Logger:      logger,
	}, service.Config{
		ChallengeTTL: cfg.Challenge.TTL,
		AccessTTL:    cfg.Session.AccessTTL,
		RefreshTTL:   cfg.Session.RefreshTTL,
		FailureFloor: cfg.Secret.FailureFloor,
		Decoy:        decoy,
		Fields:       cfg.Fields,
	})

	return a, nil
}
