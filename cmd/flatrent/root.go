// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/flatrent/flatrent/internal/config"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the flatrent CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatrent",
		Short: "FlatRent - authentication service for the flat renting platform",
		Long: `FlatRent issues and verifies the credentials of tenants, landlords and
admins: registration, login, refresh token rotation, logout and password reset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/flatrent/config.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file path (default: ./.env when present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the layered configuration, applying the command's flags last.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.Options{
		File:   configFile,
		DotEnv: envFile,
		Flags:  cmd.Flags(),
	})
}
