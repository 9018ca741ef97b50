package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()

			limit := max(lines, 0)
			offset := int64(-1)
			if limit == 0 {
				offset = 0
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			out := cmd.OutOrStdout()
			printed := false
			for {
				resp, err := logs.Tail(runCtx, path, logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
					Filter: filter,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(out, line)
					printed = true
				}
				offset = resp.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				select {
				case <-runCtx.Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filter.AssetID, "asset", "", "Only show lines for this asset ID")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show lines from this component")
	return cmd
}
