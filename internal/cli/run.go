package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-intake/pkg/catalog"
	"github.com/goliatone/go-intake/pkg/form"
	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/renderers/tui"
	"github.com/goliatone/go-intake/pkg/selector"
	"github.com/goliatone/go-intake/pkg/submission"
)

type runOptions struct {
	lang     string
	location string
	api      string
	dryRun   bool
	format   string
	confirm  bool
}

func (a *App) newRunCmd() *cobra.Command {
	var opts runOptions

	return NewCommand(
		"run", "Fill in the intake questionnaire in the terminal",
	).WithArgs(cobra.NoArgs).WithFlags(func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&opts.lang, "lang", i18n.English, "Questionnaire language (en or es)")
		cmd.Flags().StringVar(&opts.location, "catalog", "", "Catalog directory, file or URL (defaults to CATALOG_PATH or the built-in catalog)")
		cmd.Flags().StringVar(&opts.api, "api", "", "Base URL of the intake API to submit to")
		cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the compiled request instead of submitting it")
		cmd.Flags().StringVar(&opts.format, "format", string(tui.OutputFormatJSON), "Dry run output format (json, form or pretty)")
		cmd.Flags().BoolVar(&opts.confirm, "confirm", false, "Ask the API to send the confirmation email after submitting")
	}).WithRunE(func(cmd *cobra.Command, args []string) error {
		return a.runIntake(cmd, opts)
	}).Build()
}

func (a *App) runIntake(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	bundle, err := i18n.Default()
	if err != nil {
		return err
	}
	lang := i18n.NormalizeLocale(opts.lang)
	if !bundle.Has(lang) {
		return fmt.Errorf("run: unsupported language %q (available: %s)", opts.lang, strings.Join(bundle.Locales(), ", "))
	}
	format := tui.OutputFormat(opts.format)
	if opts.dryRun {
		if !format.Valid() {
			return fmt.Errorf("run: unsupported output format %q", opts.format)
		}
		if opts.confirm {
			return errors.New("run: --confirm needs a real submission and cannot be combined with --dry-run")
		}
	} else if strings.TrimSpace(opts.api) == "" {
		return errors.New("run: --api is required unless --dry-run is set")
	}

	location := opts.location
	if location == "" {
		if cfg, err := a.config(); err == nil {
			location = cfg.CatalogPath
		}
	}
	cat, err := catalog.NewLoader().Load(ctx, location)
	if err != nil {
		return err
	}
	sel, err := selector.New(cat)
	if err != nil {
		return err
	}

	var (
		client *submission.Client
		submit form.SubmitFunc
	)
	if opts.dryRun {
		submit = func(_ context.Context, payload submission.Payload) (submission.Receipt, error) {
			data, err := tui.Encode(payload, format)
			if err != nil {
				return submission.Receipt{}, err
			}
			fmt.Fprintln(out, string(data))
			return submission.Receipt{RequestNumber: payload.RequestNumber, SubmittedAt: time.Now().UTC()}, nil
		}
	} else {
		client = submission.NewClient(strings.TrimRight(opts.api, "/"))
		submit = client.Submit
	}

	session := form.New(sel,
		form.WithLocale(lang),
		form.WithTranslator(bundle),
		form.WithSubmitFunc(submit),
	)
	runner := tui.New(
		tui.WithPromptDriver(a.driver),
		tui.WithOutput(out),
		tui.WithTranslator(bundle),
	)

	receipt, err := runner.Run(ctx, session)
	if errors.Is(err, tui.ErrAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.confirm && client != nil {
		if err := client.Confirm(ctx, receipt.RequestNumber, lang); err != nil {
			return err
		}
	}
	return nil
}
