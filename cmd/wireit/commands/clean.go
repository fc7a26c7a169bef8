package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove persisted .wireit state and cache directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			packageDir, err := os.Getwd()
			if err != nil {
				return err
			}
			return c.app.Clean(cmd.Context(), packageDir)
		},
	}
}
