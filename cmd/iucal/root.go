// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/iucalendar/iucalendar/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the iucal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iucal",
		Short: "iucal - a personal calendar API",
		Long: `iucal serves a session-authenticated calendar API where each user
manages their own events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/iucal/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig loads and validates configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
}
