package cmd

import "github.com/spf13/cobra"

func newTiersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Show the delay and cache policy of each priority tier",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			renderTiers(cmd.OutOrStdout())
		},
	}
}
