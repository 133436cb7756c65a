// Package cli wires configuration, storage and transport into the
// auctiond commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/auction-room-backend/internal/config"
)

type rootOptions struct {
	configPath string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "auctiond",
		Short: "Live franchise auction room server",
		Long: `auctiond hosts multiplayer auction rooms: franchises retain players from
their previous squads, then bid for the rest of the pool in timed rounds
with right-to-match.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (env overrides use the AUCTION_ prefix)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newCatalogCmd(opts))

	return rootCmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
