package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"walldo/pkg/ui"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the gallery is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := setup(nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Download.Timeout)
		defer cancel()

		result, err := client.Ping(ctx)
		if result != nil {
			ui.PrintInfo("URL", result.URL)
			ui.PrintInfo("Status", strconv.Itoa(result.Status))
			ui.PrintInfo("Latency", result.Latency.Round(time.Millisecond).String())
		}
		if err != nil {
			return fmt.Errorf("gallery unreachable: %w", err)
		}

		ui.PrintSuccess("Gallery is up")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
