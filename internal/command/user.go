package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/layer-3/captchauth/adapters/secret"
	"github.com/layer-3/captchauth/core"
)

var errVolatileBackend = errors.New("user commands need a persistent credentials backend (sqlite or postgres)")

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create or update user",
		Long: "Creates or replaces the principal for NAME. The secret is read from stdin\n" +
			"or the interactive prompt and hashed with the configured scheme.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Credentials.Backend == "memory" {
				return errVolatileBackend
			}
			logger := slog.Default()

			store, closeStore, err := openCredentials(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			hasher, err := secret.New(cfg.Secret.Scheme)
			if err != nil {
				return err
			}

			name := args[0]
			passwd, err := prompt("secret: ", true)
			if err != nil {
				return err
			}
			if len(passwd) == 0 {
				return errors.New("secret must not be empty")
			}
			hash, err := hasher.Hash(string(passwd))
			if err != nil {
				return fmt.Errorf("failed to hash secret: %w", err)
			}
			if err = store.Upsert(cmd.Context(), core.Principal{
				ID:         name,
				SecretHash: hash,
				Roles:      roles,
			}); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("name", name),
				slog.Any("roles", roles),
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&roles, "role", "r", []string{"user"}, "role granted to the user (repeatable)")
	return cmd
}

func userDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete user",
		Long:  "Permanently deletes the principal. Issued tokens stay valid until they expire.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Credentials.Backend == "memory" {
				return errVolatileBackend
			}

			name := args[0]
			logger := slog.Default().With(slog.String("name", name))

			store, closeStore, err := openCredentials(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			if _, err = store.Lookup(cmd.Context(), name); err != nil {
				return err
			}
			if !yes {
				resp, err := prompt("Are you sure you want to delete this user? [y|N] ", false)
				if !bytes.Equal(resp, []byte{'y'}) || err != nil {
					logger.InfoContext(cmd.Context(), "aborted user deletion")
					return err
				}
			}
			if err = store.Delete(cmd.Context(), name); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
