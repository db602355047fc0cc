package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-intake/pkg/catalog"
	"github.com/goliatone/go-intake/pkg/validation"
)

func (a *App) newLintCmd() *cobra.Command {
	var asJSON bool

	return NewCommand(
		"lint [location]", "Check a catalog for configuration errors",
	).WithArgs(cobra.MaximumNArgs(1)).WithFlags(func(cmd *cobra.Command) {
		cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	}).WithRunE(func(cmd *cobra.Command, args []string) error {
		location := ""
		if len(args) == 1 {
			location = args[0]
		} else if cfg, err := a.config(); err == nil {
			location = cfg.CatalogPath
		}

		cat, err := catalog.NewLoader().Load(cmd.Context(), location)
		if err != nil {
			return err
		}
		result := validation.ValidateCatalog(cat)

		out := cmd.OutOrStdout()
		if asJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			for _, issue := range result.Issues {
				fmt.Fprintf(out, "%s: %s\n", issueLocation(issue), issue.Message)
			}
			if result.Valid {
				fmt.Fprintf(out, "catalog ok: %d branches\n", len(cat.Branches))
			}
		}

		if !result.Valid {
			return fmt.Errorf("lint: %d issue(s) found", len(result.Issues))
		}
		return nil
	}).Build()
}

func issueLocation(issue validation.CatalogIssue) string {
	parts := make([]string, 0, 2)
	if issue.Branch != "" {
		parts = append(parts, issue.Branch)
	}
	if issue.Field != "" {
		parts = append(parts, issue.Field)
	}
	if len(parts) == 0 {
		return "catalog"
	}
	return strings.Join(parts, " > ")
}
