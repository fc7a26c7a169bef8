package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wireit-go/wireit/internal/version"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "wireit version %s (commit: %s, date: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
