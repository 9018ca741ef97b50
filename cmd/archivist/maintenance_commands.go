package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"archivist/internal/ipc"
)

func newCancelStuckCommand(ctx *commandContext) *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "cancel-stuck",
		Short: "Fail assets that have been processing for too long",
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes <= 0 {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				minutes = cfg.Workers.StuckAfterMinutes
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CancelStuck(minutes)
				if err != nil {
					return err
				}
				printCancelled(cmd, resp)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "older-than", 0, "Threshold in minutes (defaults to workers.stuck_after_minutes)")
	return cmd
}

func newCancelAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-all",
		Short: "Fail every asset that is currently processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CancelAll()
				if err != nil {
					return err
				}
				printCancelled(cmd, resp)
				return nil
			})
		},
	}
}

func printCancelled(cmd *cobra.Command, resp *ipc.CancelResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cancelled %d asset(s)\n", len(resp.Cancelled))
	for _, id := range resp.Cancelled {
		fmt.Fprintf(out, "  %s\n", id)
	}
}

func newThumbnailsCommand(ctx *commandContext) *cobra.Command {
	thumbsCmd := &cobra.Command{
		Use:   "thumbnails",
		Short: "Manage video thumbnails",
	}
	var req ipc.ThumbnailsRequest
	regen := &cobra.Command{
		Use:   "regenerate",
		Short: "Re-extract hero and slate thumbnails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RegenerateThumbnails(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Regenerated %d asset(s)\n", len(resp.Regenerated))
				printSkips(out, "Skipped", resp.Skipped)
				printSkips(out, "Failed", resp.Failed)
				return nil
			})
		},
	}
	regen.Flags().StringVar(&req.Container, "container", "", "Only regenerate assets in this container")
	regen.Flags().BoolVar(&req.Force, "force", false, "Regenerate even when thumbnails exist")
	thumbsCmd.AddCommand(regen)
	return thumbsCmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var req ipc.ReconcileRequest
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match metadata-only assets to files under the source root",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reconcile(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				mode := "applied"
				if resp.DryRun {
					mode = "dry run"
				}
				fmt.Fprintf(out, "Scanned %d file(s) under %s (%s)\n", resp.Scanned, resp.Root, mode)
				if len(resp.Candidates) > 0 {
					rows := make([][]string, 0, len(resp.Candidates))
					for _, c := range resp.Candidates {
						rows = append(rows, []string{c.AssetID, displayLabel(c.Tier), c.RelPath, yesNo(c.Applied)})
					}
					fmt.Fprint(out, renderTable([]string{"Asset", "Tier", "File", "Applied"}, rows, nil))
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "Matched %d, unmatched %d\n", len(resp.Candidates), len(resp.Unmatched))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Container, "container", "", "Only reconcile assets in this container")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "Report matches without updating assets")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
