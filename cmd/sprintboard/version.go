package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func currentVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sprintboard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sprintboard version %s\n", currentVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
