package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"walldo/pkg/config"
	"walldo/pkg/gallery"
	"walldo/pkg/logger"
	"walldo/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "walldo",
	Short: "Download wallpapers from an online gallery by keyword",
	Long: `walldo searches a wallpaper gallery for a keyword and downloads the
full-size images it lists, page by page, until the requested number of
new images is on disk.

Features:
  - Concurrent batches of downloads per gallery page
  - Images already on disk are skipped, so repeated runs only add new ones
  - Per-run and per-session statistics
  - Manifest export and import to re-download a previous run
  - Optional Prometheus metrics and desktop notifications`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if !quiet && cmd.Name() == "download" && ui.IsTerminal(os.Stdout) {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/walldo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.SetVersionTemplate(`walldo {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// setup loads the configuration with the given command flags on top,
// initializes the global logger and builds the gallery client
func setup(flags map[string]interface{}) (*config.Config, *gallery.Client, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	client := gallery.NewClientWithConfig(&cfg.Site, cfg.Download.Timeout, logger.GetLogger())
	return cfg, client, nil
}
