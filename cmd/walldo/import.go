package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"walldo/pkg/events"
	"walldo/pkg/logger"
	"walldo/pkg/manifest"
	"walldo/pkg/session"
	"walldo/pkg/ui"
)

var (
	importDir   string
	importBatch int
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.json>",
	Short: "Download the images listed in an exported manifest",
	Long: `Re-attempt every file name -> link pair stored in a manifest written by
'walldo download --export'. No gallery pages are visited; images that are
already on disk are skipped.`,
	Example: `  # Fetch the links again into the directory recorded in the manifest
  walldo import ironman.json

  # Fetch them into another directory
  walldo import ironman.json -o ./backup`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importDir, "output", "o", "", "target directory (default is the manifest's)")
	importCmd.Flags().IntVar(&importBatch, "batch", 0, "number of links downloaded concurrently per batch")
}

func runImport(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	cfg, client, err := setup(map[string]interface{}{"batch": importBatch})
	if err != nil {
		return err
	}
	log := logger.GetLogger().WithField("manifest", args[0])

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targetDir := importDir
	if targetDir == "" {
		targetDir = m.TargetDir
	}

	out := cmd.OutOrStdout()
	observers := []events.Observer{ui.NewRunNotifier(cfg.Notifications)}
	if !quiet {
		observers = append(observers, ui.NewProgressDisplay(out, m.Keyword, len(m.Images), isTerminal(out)))
	}

	ctrl, err := session.New(client, cfg, events.NewMulti(observers...), log)
	if err != nil {
		return err
	}

	log.InfoWithFields("Importing manifest", map[string]interface{}{
		"keyword":    m.Keyword,
		"images":     len(m.Images),
		"target_dir": targetDir,
		"source_run": m.RunID,
	})

	snap, err := ctrl.Redownload(ctx, m.Images, targetDir, cfg.Download.BatchSize)
	if snap != nil && !quiet {
		ui.PrintSummary(out, *snap, ctrl.SessionStats())
	}
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}
	return nil
}
