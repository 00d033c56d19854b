package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aretw0/sprintboard"
	"github.com/aretw0/sprintboard/internal/settings"
	"github.com/aretw0/sprintboard/pkg/core"
)

var (
	verbose    bool
	logFile    string
	configPath string
	vaultPath  string
	s3Endpoint string
	s3Region   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sprintboard",
	Short: "Mirror the current sprint into a markdown Kanban board",
	Long: `sprintboard fetches the work items of the current sprint from Azure DevOps
or Jira and reconciles them into a markdown Kanban board in your vault.
Cards you wrote yourself, notes under synced cards and extra columns are kept.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		var out io.Writer = os.Stderr
		if logFile != "" {
			out = &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(out, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default ./.sprintboard.yaml or the user config directory)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory or s3://bucket/prefix (default: nearest vault above the working directory)")
	rootCmd.PersistentFlags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint for s3:// vaults (path-style addressing)")
	rootCmd.PersistentFlags().StringVar(&s3Region, "s3-region", "", "Region for s3:// vaults")
}

// loadSettings reads the settings file. Env-only setups are allowed, so a
// missing file is reported at debug level only.
func loadSettings() (core.Settings, string) {
	s, path, err := settings.Load(configPath)
	if err != nil {
		if !errors.Is(err, settings.ErrNotConfigured) {
			fatal("Failed to load settings", err)
		}
		slog.Debug("no settings file found, using defaults and environment", "path", path)
	}
	return s, path
}

// resolveVault returns the --vault flag, else the nearest vault above the
// working directory, else the working directory itself.
func resolveVault() string {
	if vaultPath != "" {
		return vaultPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	if root, err := sprintboard.FindRoot(cwd); err == nil {
		return root
	}
	return cwd
}

func vaultOptions(extra ...sprintboard.Option) []sprintboard.Option {
	opts := []sprintboard.Option{sprintboard.WithLogger(slog.Default())}
	if s3Endpoint != "" {
		opts = append(opts, sprintboard.WithS3Endpoint(s3Endpoint, true))
	}
	if s3Region != "" {
		opts = append(opts, sprintboard.WithS3Region(s3Region))
	}
	return append(opts, extra...)
}

func openService(extra ...sprintboard.Option) *core.Service {
	vault := resolveVault()
	svc, err := sprintboard.New(vault, vaultOptions(extra...)...)
	if err != nil {
		fatal(fmt.Sprintf("Failed to open vault %s", vault), err)
	}
	return svc
}
