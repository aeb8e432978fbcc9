// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the rlvkit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rlvkit",
		Short: "RLVKit - a scripted restriction engine for virtual world clients",
		Long: `RLVKit interprets RestrainedLove commands from in-world objects and
maintains the resulting restriction state: permission queries, folder
locks, forced actions, and channel replies.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewCommandsCmd())

	return cmd
}
