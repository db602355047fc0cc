package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-intake/internal/repository"
)

func (a *App) newMigrateCmd() *cobra.Command {
	return NewCommand(
		"migrate", "Create the requests and email outbox tables",
	).WithArgs(cobra.NoArgs).WithRunE(func(cmd *cobra.Command, args []string) error {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("migrate: DATABASE_URL is required")
		}
		logger := cfg.Logger(cmd.ErrOrStderr())

		pool, err := repository.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		return repository.Migrate(cmd.Context(), pool, logger)
	}).Build()
}
