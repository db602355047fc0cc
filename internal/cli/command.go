// Package cli builds the intake command tree.
package cli

import "github.com/spf13/cobra"

// Command assembles a cobra command from its flag and run steps.
type Command struct {
	command *cobra.Command
	// flagsFunc registers flags before the command is returned.
	flagsFunc func(cmd *cobra.Command)
}

// NewCommand starts a command with its usage line and short help.
func NewCommand(use, short string) *Command {
	return &Command{
		command: &cobra.Command{
			Use:          use,
			Short:        short,
			SilenceUsage: true,
		},
	}
}

// WithArgs sets the positional argument check.
func (c *Command) WithArgs(args cobra.PositionalArgs) *Command {
	c.command.Args = args
	return c
}

// WithFlags registers flags on Build.
func (c *Command) WithFlags(flags func(cmd *cobra.Command)) *Command {
	c.flagsFunc = flags
	return c
}

// WithRunE sets the command body.
func (c *Command) WithRunE(run func(cmd *cobra.Command, args []string) error) *Command {
	c.command.RunE = run
	return c
}

// Build returns the configured cobra command.
func (c *Command) Build() *cobra.Command {
	if c.flagsFunc != nil {
		c.flagsFunc(c.command)
	}
	return c.command
}
