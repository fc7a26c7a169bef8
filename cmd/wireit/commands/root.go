// Package commands implements the CLI commands for the wireit script
// runner.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wireit-go/wireit/internal/app"
	"github.com/wireit-go/wireit/internal/version"
)

// Application is the business-logic surface the CLI drives.
type Application interface {
	Run(ctx context.Context, packageDir, scriptName string, opts app.RunOptions) error
	Clean(ctx context.Context, packageDir string) error
}

// LaunchResolver validates the runner-supplied launch context and resolves
// the script to run and the package directory it belongs to. argScript is
// the first positional CLI argument, or "" if none was given.
type LaunchResolver func(argScript string) (scriptName, packageDir string, err error)

// CLI represents the wireit command-line interface.
type CLI struct {
	app           Application
	resolveLaunch LaunchResolver
	rootCmd       *cobra.Command
}

// New creates a CLI wired to a and resolveLaunch.
func New(a Application, resolveLaunch LaunchResolver) *CLI {
	rootCmd := &cobra.Command{
		Use:           "wireit [script]",
		Short:         "An incremental script runner for package-manager scripts",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		version.Commit,
		version.Date,
	))

	c := &CLI{
		app:           a,
		resolveLaunch: resolveLaunch,
		rootCmd:       rootCmd,
	}

	c.attachRunFlags(rootCmd)
	rootCmd.RunE = c.runE

	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with ctx.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used
// for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
