// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/tasklist/internal/config"
	"github.com/holomush/tasklist/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tasklist CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasklist",
		Short: "TaskList - a multi-user task list service",
		Long: `TaskList serves per-user task lists behind session authentication,
with email-based password reset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (YAML, default $XDG_CONFIG_HOME/tasklist/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads configuration for cmd, letting its changed flags win.
// Without --config the XDG config file is used when it exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.ExistingConfigFile(); err != nil {
			return config.Config{}, err //nolint:wrapcheck // xdg errors carry their own codes
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, err //nolint:wrapcheck // config errors carry their own codes
	}
	return cfg, nil
}
