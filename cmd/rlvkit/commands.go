// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/rlvkit/rlvkit/internal/command"
)

// NewCommandsCmd creates the commands subcommand, which lists the known
// command registry.
func NewCommandsCmd() *cobra.Command {
	var category string
	var preset string

	cmd := &cobra.Command{
		Use:   "commands [filter]",
		Short: "List the known commands",
		Long: `List every command the engine recognizes, optionally filtered by a
substring, a category, or one of the blacklist presets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := command.NewTable()

			if preset != "" {
				names, ok := table.Preset(preset)
				if !ok {
					return cmd.Help()
				}
				cmd.Println(names)
				return nil
			}

			var names []string
			if category != "" {
				names = table.ListByCategory(command.Category(category))
			} else {
				filter := ""
				if len(args) == 1 {
					filter = args[0]
				}
				names = table.List(filter)
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "restrict to one category (chat, teleport, ...)")
	cmd.Flags().StringVar(&preset, "preset", "", "print a blacklist preset (vanilla or roleplay)")

	return cmd
}
