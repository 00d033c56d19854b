package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sprintboard"
	"github.com/aretw0/sprintboard/pkg/core"
)

var (
	boardsJSON    bool
	boardsPattern string
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the sprint boards in the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		vault := resolveVault()
		store, err := sprintboard.Open(vault, vaultOptions(sprintboard.WithReadOnly(true), sprintboard.WithMustExist(true))...)
		if err != nil {
			fatal(fmt.Sprintf("Failed to open vault %s", vault), err)
		}
		lister, ok := store.(core.Lister)
		if !ok {
			fatalf("The vault at %s cannot be listed", vault)
		}

		paths, err := lister.List(context.Background(), boardsPattern)
		if err != nil {
			fatal("Failed to list boards", err)
		}

		if boardsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(paths); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		if len(paths) == 0 {
			printInfo("No boards matching %s in %s", boardsPattern, vault)
			return
		}
		for _, p := range paths {
			fmt.Println(p)
		}
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.Flags().BoolVar(&boardsJSON, "json", false, "Output in JSON format")
	boardsCmd.Flags().StringVar(&boardsPattern, "pattern", "**/sprint-*.md", "Glob pattern of board files")
}
