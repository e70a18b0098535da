// Package cmd implements the lazyload command line.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCommand builds the lazyload command tree. Every call gets its own
// viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "lazyload",
		Short: "Load API endpoints in priority order",
		Long: `lazyload requests the configured endpoints the way a dashboard would:
high priority data at once, medium after 100ms and low after 300ms, each
tier with its own cache policy.`,
		SilenceUsage: true,
	}

	// Global flags
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./lazyload.yaml or $HOME/.config/lazyload/lazyload.yaml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	root.AddCommand(newFetchCommand(v, opts))
	root.AddCommand(newTiersCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
