package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-intake/internal/config"
	"github.com/goliatone/go-intake/pkg/renderers/tui"
)

// App carries the dependencies shared by every subcommand.
type App struct {
	envFile string
	driver  tui.PromptDriver
	environ map[string]string
}

// Option configures the App.
type Option func(*App)

// WithPromptDriver replaces the terminal prompts used by `run`.
func WithPromptDriver(driver tui.PromptDriver) Option {
	return func(a *App) {
		a.driver = driver
	}
}

// WithEnvironment replaces the process environment. The .env file is not
// read when an environment is supplied.
func WithEnvironment(environ map[string]string) Option {
	return func(a *App) {
		a.environ = environ
	}
}

// NewRoot builds the intake command tree.
func NewRoot(opts ...Option) *cobra.Command {
	app := &App{}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	root := &cobra.Command{
		Use:               "intake <command> [flags]",
		Short:             "Bilingual immigration intake",
		Long:              `Serve the intake API, run the terminal questionnaire, lint catalogs and migrate the database.`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
	}
	root.PersistentFlags().StringVar(&app.envFile, "env-file", ".env", "Path to a .env file")

	root.AddCommand(
		app.newServeCmd(),
		app.newRunCmd(),
		app.newLintCmd(),
		app.newMigrateCmd(),
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRoot().ExecuteContext(ctx)
}

func (a *App) config() (config.Config, error) {
	if a.environ != nil {
		return config.FromEnvironment(a.environ)
	}
	return config.Load(a.envFile)
}
