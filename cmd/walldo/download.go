package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/logger"
	"walldo/pkg/manifest"
	"walldo/pkg/metrics"
	"walldo/pkg/session"
	"walldo/pkg/ui"
)

var (
	// Download command flags
	numImages   int
	outputDir   string
	maxRetries  int
	batchSize   int
	timeout     time.Duration
	rate        int
	exportPath  string
	metricsAddr string
)

var downloadCmd = &cobra.Command{
	Use:   "download <keyword>",
	Short: "Download wallpapers matching a keyword",
	Long: `Search the gallery for a keyword and download new images until the
requested number is on disk or the retry budget is spent.

Every gallery page counts as one retry, whether it yielded new images or
not. Images already in the target directory are skipped and not counted.`,
	Example: `  # Download 30 images into ./wallpapers/ironman
  walldo download ironman

  # Download 50 images into a specific directory, 10 per batch
  walldo download "iron man" -n 50 -o ./walls --batch 10

  # Export the run's links so they can be fetched again later
  walldo download ironman --export ironman.json

  # Expose Prometheus metrics while downloading
  walldo download ironman --metrics-addr :9090`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().IntVarP(&numImages, "num", "n", 0, "number of new images to download (default from config)")
	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base output directory (default from config)")
	downloadCmd.Flags().IntVar(&maxRetries, "retries", 0, "maximum number of gallery pages to visit")
	downloadCmd.Flags().IntVar(&batchSize, "batch", 0, "number of links downloaded concurrently per batch")
	downloadCmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP request timeout")
	downloadCmd.Flags().IntVar(&rate, "rate", 0, "maximum image requests per minute (0 disables throttling)")
	downloadCmd.Flags().StringVar(&exportPath, "export", "", "write the run's file name -> link manifest to this file")
	downloadCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func downloadFlags() map[string]interface{} {
	return map[string]interface{}{
		"num":          numImages,
		"output":       outputDir,
		"retries":      maxRetries,
		"batch":        batchSize,
		"timeout":      timeout,
		"rate":         rate,
		"metrics-addr": metricsAddr,
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if keyword == "" {
		return fmt.Errorf("keyword must not be empty")
	}

	cfg, client, err := setup(downloadFlags())
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	targetDir := targetDirFor(cfg.Output, keyword)
	wanted := cfg.Download.NumImages

	observers := []events.Observer{ui.NewRunNotifier(cfg.Notifications)}
	if !quiet {
		observers = append(observers, ui.NewProgressDisplay(out, keyword, wanted, isTerminal(out)))
	}
	if cfg.Metrics.Enabled {
		m := metrics.New(cfg.Metrics.Namespace)
		stopMetrics, err := serveMetrics(ctx, cfg.Metrics.Addr, m, log)
		if err != nil {
			return err
		}
		defer stopMetrics()
		observers = append(observers, m)
	}

	ctrl, err := session.New(client, cfg, events.NewMulti(observers...), log)
	if err != nil {
		return err
	}

	if !quiet {
		ui.PrintInfo("Keyword", keyword)
		ui.PrintInfo("Target", targetDir)
	}

	snap, runErr := ctrl.StartDownload(ctx, session.Request{
		Keyword:    keyword,
		NumImages:  wanted,
		TargetDir:  targetDir,
		MaxRetries: cfg.Download.MaxRetries,
		BatchSize:  cfg.Download.BatchSize,
	})
	if snap == nil {
		return runErr
	}

	if served, ok := ctrl.ServedQuery(); ok && !quiet {
		ui.PrintInfo("Served collection", served)
	}

	path := exportPath
	if path == "" && cfg.Output.ExportManifest {
		path = manifest.DefaultPath(targetDir)
	}
	if path != "" {
		if err := exportManifest(path, keyword, targetDir, ctrl); err != nil {
			log.WithError(err).Warn("Manifest export failed")
			ui.PrintWarning("Manifest export failed", err)
		} else if !quiet {
			ui.PrintInfo("Manifest", path)
		}
	}

	if !quiet {
		ui.PrintSummary(out, *snap, ctrl.SessionStats())
	}

	if stderrors.Is(runErr, errors.ErrSearchReturnedNone) {
		return fmt.Errorf("no wallpapers found for %q", keyword)
	}
	return runErr
}

// targetDirFor resolves where a keyword's images go
func targetDirFor(out config.OutputConfig, keyword string) string {
	base := out.BaseDirectory
	if base == "" {
		base = "."
	}
	if !out.CreateKeywordFolders {
		return base
	}
	return filepath.Join(base, folderName(keyword))
}

// folderName turns a keyword into a single path element
func folderName(keyword string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(keyword))

	name = strings.Trim(name, ". ")
	if name == "" {
		return "_"
	}
	return name
}

func exportManifest(path, keyword, targetDir string, ctrl *session.Controller) error {
	links := ctrl.LastLinks()
	if len(links) == 0 {
		return fmt.Errorf("run downloaded no images")
	}
	return manifest.Save(path, manifest.New(keyword, targetDir, ctrl.LastRunID(), links))
}

// serveMetrics starts the metrics endpoint and returns a func that shuts it
// down and waits for it
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log logger.Logger) (func(), error) {
	srv, err := metrics.Listen(addr, m, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsTerminal(f)
}
