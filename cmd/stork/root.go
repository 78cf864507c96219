package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Stork CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stork",
		Short: "Stork - session-based authentication service",
		Long: `Stork is a session-based authentication service backed by PostgreSQL.
It manages accounts, opaque session tokens with sliding expiry, and the
HTTP API that front-ends authenticate against.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
