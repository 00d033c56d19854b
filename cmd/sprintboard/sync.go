package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	syncDryRun bool
	syncJSON   bool
	syncCommit bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the current sprint into the board",
	Long: `Fetch the current sprint from the configured backend and reconcile it into
the board document. On any failure the board is left untouched.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, _ := loadSettings()
		if cmd.Flags().Changed("commit") {
			s.Commit = syncCommit
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		svc := openService()

		if syncDryRun {
			report, err := svc.Preview(ctx, s)
			if err != nil {
				fatal("Sync failed", err)
			}
			os.Stdout.Write(report.Document)
			return
		}

		report, err := svc.RunSync(ctx, s)
		if err != nil {
			fatal("Sync failed", err)
		}

		if syncJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(report); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		switch {
		case report.Created:
			printSuccess("Created %s from %s", styleAccent.Render(report.Path), report.Sprint)
		case report.Written:
			printSuccess("Updated %s from %s", styleAccent.Render(report.Path), report.Sprint)
		default:
			printInfo("%s is already up to date with %s", styleAccent.Render(report.Path), report.Sprint)
		}
		printInfo("%s", summary(report))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the board that would be written without writing it")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the sync report as JSON")
	syncCmd.Flags().BoolVar(&syncCommit, "commit", false, "Commit the board to git after writing (overrides settings)")
}
