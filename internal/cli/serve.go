package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-intake/internal/config"
	"github.com/goliatone/go-intake/internal/notify"
	"github.com/goliatone/go-intake/internal/repository"
	"github.com/goliatone/go-intake/internal/server"
	"github.com/goliatone/go-intake/internal/storage"
	"github.com/goliatone/go-intake/pkg/catalog"
	"github.com/goliatone/go-intake/pkg/i18n"
)

func (a *App) newServeCmd() *cobra.Command {
	var (
		port    int
		migrate bool
		grace   time.Duration
	)

	return NewCommand(
		"serve", "Start the intake HTTP API",
	).WithFlags(func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides PORT)")
		cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the database schema before serving")
		cmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "Shutdown grace period")
	}).WithRunE(func(cmd *cobra.Command, args []string) error {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		if port > 0 {
			cfg.Port = port
		}
		logger := cfg.Logger(cmd.ErrOrStderr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handler, cleanup, err := a.buildServer(ctx, cfg, logger, migrate)
		if err != nil {
			return err
		}
		defer cleanup()

		httpServer := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errChan := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
		logger.Info("listening", "addr", cfg.Addr(), "locale", cfg.DefaultLocale, "storage", cfg.StorageType)

		select {
		case err := <-errChan:
			return fmt.Errorf("listen: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
			return err
		}
		logger.Info("stopped")
		return nil
	}).Build()
}

// buildServer wires persistence, archive storage and email confirmation into
// the HTTP handler. Without DATABASE_URL requests live in memory.
func (a *App) buildServer(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) (http.Handler, func(), error) {
	cleanup := func() {}

	cat, err := catalog.NewLoader().Load(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, cleanup, err
	}
	bundle, err := i18n.Default()
	if err != nil {
		return nil, cleanup, err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithTranslator(bundle),
		server.WithDefaultLocale(cfg.DefaultLocale),
	}

	var outbox repository.OutboxStore
	if cfg.DatabaseURL != "" {
		pool, err := repository.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		if migrate {
			if err := repository.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, func() {}, err
			}
		}
		opts = append(opts, server.WithRequests(repository.NewPostgresRequests(pool)))
		outbox = repository.NewPostgresOutbox(pool)
	} else {
		logger.Warn("DATABASE_URL is not set, requests are kept in memory")
		outbox = repository.NewMemoryOutbox()
	}

	store, err := storage.New(ctx, cfg.Storage())
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if store != nil {
		opts = append(opts, server.WithArchive(storage.NewArchive(store)))
	}

	mailer, err := notify.New(notify.WithTranslator(bundle), notify.WithBaseURL(cfg.PublicBaseURL))
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	opts = append(opts, server.WithNotifier(notify.NewNotifier(mailer, outbox)))

	srv, err := server.New(ctx, cat, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return srv.Handler(), cleanup, nil
}
