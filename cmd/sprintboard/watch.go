package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/sprintboard/internal/settings"
	"github.com/aretw0/sprintboard/pkg/adapters/fs"
	triggers "github.com/aretw0/sprintboard/pkg/adapters/lifecycle"
	"github.com/aretw0/sprintboard/pkg/core"
)

var (
	watchInterval time.Duration
	watchFiles    []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync on a schedule and whenever the settings or a trigger file change",
	Long: `Run a sync now, then again every --interval and whenever the settings file
or one of the --trigger files is written. Settings are re-read before each sync.
Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, settingsPath := loadSettings()
		svc := openService()

		var inputs []<-chan core.Trigger
		files := append([]string{settingsPath}, watchFiles...)
		if ch, err := fs.Watch(ctx, files, fs.DefaultDebounce, slog.Default()); err != nil {
			printWarning("File watching disabled: %v", err)
		} else {
			inputs = append(inputs, ch)
		}
		if len(inputs) == 0 && watchInterval <= 0 {
			fatalf("Nothing to watch: set --interval or fix the watched paths")
		}

		source := triggers.NewSource(watchInterval, inputs...)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to start watching", err)
		}

		runTriggered(ctx, svc, core.Trigger{Reason: "startup", At: time.Now()})
		printInfo("Watching %d file(s), interval %s", len(files), watchInterval)

		for event := range source.Events() {
			trig, ok := event.(core.Trigger)
			if !ok {
				continue
			}
			runTriggered(ctx, svc, trig)
		}
		printInfo("Stopped")
	},
}

// runTriggered re-reads the settings and runs one sync. Failures are
// reported and the watch continues.
func runTriggered(ctx context.Context, svc *core.Service, trig core.Trigger) {
	slog.Info("sync triggered", "reason", trig.Reason, "path", trig.Path)
	s, _, err := settings.Load(configPath)
	if err != nil && !errors.Is(err, settings.ErrNotConfigured) {
		printFailure("Failed to load settings", err)
		return
	}

	var result core.Result
	select {
	case result = <-svc.RunSyncAsync(ctx, s):
	case <-ctx.Done():
		return
	}
	if result.Err != nil {
		if ctx.Err() != nil {
			return
		}
		printFailure("Sync failed", result.Err)
		if core.IsRetryable(result.Err) {
			printInfo("Will retry on the next trigger")
		}
		return
	}
	r := result.Report
	if r.Written {
		printSuccess("%s synced from %s: %s", styleAccent.Render(r.Path), r.Sprint, summary(r))
	} else {
		printInfo("%s already up to date", styleAccent.Render(r.Path))
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Minute, "Sync at this interval (0 disables the schedule)")
	watchCmd.Flags().StringArrayVar(&watchFiles, "trigger", nil, "Also sync when this file is written (repeatable)")
}
