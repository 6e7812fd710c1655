// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - username/password authentication service",
		Long: `authcore is an authentication service providing account registration,
login with brute-force lockout, bearer tokens, and profile management.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
