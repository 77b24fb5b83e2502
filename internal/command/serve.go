package command

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/captchauth/adapters/tokenizer"
	"github.com/layer-3/captchauth/config"
	transport "github.com/layer-3/captchauth/transport/http"
)

const readHeaderTimeout = time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the authentication HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			logger := slog.Default()

			a, err := wire(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			grp, ctx := errgroup.WithContext(cmd.Context())

			if a.challenges != nil {
				grp.Go(func() error {
					a.challenges.RunJanitor(ctx, cfg.Challenge.SweepInterval)
					return nil
				})
			}
			if a.revocations != nil {
				grp.Go(func() error {
					every(ctx, cfg.Session.SweepInterval, func() { a.revocations.Sweep() })
					return nil
				})
			}

			if !strings.EqualFold(cfg.Log.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			router := transport.SetupRouter(a.service, transport.Options{
				SessionCookie:   cfg.Server.SessionCookie,
				SecureCookie:    cfg.Server.SecureCookie,
				ExposeChallenge: cfg.Challenge.ExposeCode,
				Metrics:         cfg.Metrics.Enabled,
			}, logger)

			if cfg.Challenge.ExposeCode {
				logger.WarnContext(ctx, "challenge values are exposed in API responses; do not use in production")
			}

			if err := serveHTTP(ctx, grp, cfg, logger, router); err != nil {
				return err
			}
			return grp.Wait()
		},
	}
}

func serveHTTP(ctx context.Context, grp *errgroup.Group, cfg *config.Config, logger *slog.Logger, handler http.Handler) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", cfg.Server.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	logger.InfoContext(ctx,
		"starting server...",
		slog.String("address", listener.Addr().String()),
	)

	grp.Go(func() error {
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return nil
}

// signingKey loads the configured token signing key or generates one
func signingKey(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ecdsa.PrivateKey, error) {
	if cfg.Session.SigningKeyFile != "" {
		return tokenizer.LoadSigningKey(cfg.Session.SigningKeyFile)
	}
	logger.WarnContext(ctx, "no signing key configured, generated an ephemeral one; tokens will not survive a restart")
	return tokenizer.GenerateSigningKey()
}

// every runs fn each interval until ctx is done
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
