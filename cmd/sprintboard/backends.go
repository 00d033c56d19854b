package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sprintboard"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available backends and the settings they need",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		registry := sprintboard.DefaultRegistry(nil, nil)
		for _, name := range registry.Names() {
			backend, _ := registry.Lookup(name)
			fmt.Println(styleBold.Render(name))
			for _, f := range backend.DescribeSettings() {
				marker := " "
				if f.Required {
					marker = "*"
				}
				line := fmt.Sprintf("  %s %-14s %s", marker, f.Key, f.Label)
				if f.Default != "" {
					line += styleMuted.Render(fmt.Sprintf(" (default %s)", f.Default))
				}
				fmt.Println(line)
			}
		}
		fmt.Println(styleMuted.Render("* required"))
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
