package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/asset"
	"archivist/internal/ipc"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:     "assets",
		Aliases: []string{"asset"},
		Short:   "Inspect registered assets",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsShowCommand(ctx))
	return assetsCmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var req ipc.AssetListRequest
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetList(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Assets)
				}
				if len(resp.Assets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No assets found")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Kind", "Container", "Name", "Status", "Updated"},
					buildAssetRows(resp.Assets),
					nil,
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Container, "container", "", "Only list assets in this container")
	cmd.Flags().StringSliceVarP(&req.Statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "Filter by kind (video, audio, image, file)")
	cmd.Flags().BoolVar(&req.MetadataOnly, "metadata-only", false, "Only list assets without a source file")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Maximum number of assets to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildAssetRows(assets []ipc.Asset) [][]string {
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		name := a.OriginalName
		if name == "" {
			name = a.Identifier
		}
		rows = append(rows, []string{
			a.ID,
			a.Kind,
			a.Container,
			truncate(name, 40),
			displayLabel(a.Status),
			a.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newAssetsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one asset with its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetDescribe(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Asset)
				}
				renderAsset(cmd.OutOrStdout(), resp.Asset)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderAsset(out io.Writer, a ipc.Asset) {
	fmt.Fprintf(out, "ID:          %s\n", a.ID)
	fmt.Fprintf(out, "Kind:        %s\n", a.Kind)
	fmt.Fprintf(out, "Container:   %s\n", a.Container)
	fmt.Fprintf(out, "Name:        %s\n", a.OriginalName)
	if a.Identifier != "" {
		fmt.Fprintf(out, "Identifier:  %s\n", a.Identifier)
	}
	source := a.SourcePath
	if source == "" {
		source = "(metadata only)"
	}
	fmt.Fprintf(out, "Source:      %s\n", source)
	fmt.Fprintf(out, "Status:      %s\n", displayLabel(a.Status))
	if a.LastError != "" {
		fmt.Fprintf(out, "Last error:  %s\n", a.LastError)
	}
	if a.ProcessingStartedAt != nil {
		fmt.Fprintf(out, "Started:     %s\n", a.ProcessingStartedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "Updated:     %s\n", a.UpdatedAt.Local().Format(time.DateTime))

	var rows [][]string
	for _, artifact := range asset.Artifacts() {
		if path := a.Artifacts.Get(artifact); path != "" {
			rows = append(rows, []string{displayLabel(string(artifact)), path})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, renderTable([]string{"Artifact", "Path"}, rows, nil))
		fmt.Fprintln(out)
	}
	if len(a.Artifacts.CustomVariants) > 0 {
		rows := make([][]string, 0, len(a.Artifacts.CustomVariants))
		for _, v := range a.Artifacts.CustomVariants {
			rows = append(rows, []string{v.PresetID, v.Container, v.Resolution, fmt.Sprintf("%.1f", v.SizeMB), v.Path})
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, renderTable([]string{"Preset", "Container", "Resolution", "MB", "Path"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
		fmt.Fprintln(out)
	}
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var req ipc.RegisterRequest
	var metadata string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an asset and optionally dispatch it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(metadata) != "" {
				if err := json.Unmarshal([]byte(metadata), &req.Metadata); err != nil {
					return fmt.Errorf("parse --metadata: %w", err)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Register(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Registered %s (%s)\n", resp.Asset.ID, resp.Asset.Status)
				printJob(out, resp.Job)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Kind, "kind", "", "Asset kind (video, audio, image, file)")
	cmd.Flags().StringVar(&req.Container, "container", "", "Owning container")
	cmd.Flags().StringVar(&req.OriginalName, "name", "", "Original file name")
	cmd.Flags().StringVar(&req.Identifier, "identifier", "", "Archive identifier used by reconcile")
	cmd.Flags().StringVar(&req.SourcePath, "source", "", "Existing source path (relative to the media root or absolute)")
	cmd.Flags().StringVar(&req.UploadPath, "upload", "", "File to copy into the sources bucket")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON object of metadata")
	cmd.Flags().BoolVar(&req.Dispatch, "dispatch", false, "Dispatch after registering")
	cmd.Flags().BoolVar(&req.Wait, "wait", false, "Wait for the dispatched job to finish")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "dispatch <id>",
		Short: "Submit a pending asset for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Dispatch(args[0], wait)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s\n", args[0])
				printJob(cmd.OutOrStdout(), resp.Job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to finish")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Clear an asset's error and process it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(args[0], wait)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %s\n", args[0])
				printJob(cmd.OutOrStdout(), resp.Job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to finish")
	return cmd
}

func newRetryAllCommand(ctx *commandContext) *cobra.Command {
	var req ipc.RetryAllRequest
	cmd := &cobra.Command{
		Use:   "retry-all",
		Short: "Retry every failed asset in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RetryAll(req)
				if err != nil {
					return err
				}
				printBulk(cmd.OutOrStdout(), "Retried", resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Container, "container", "", "Only retry assets in this container")
	cmd.Flags().StringSliceVarP(&req.Statuses, "status", "s", nil, "Statuses to retry (default error)")
	return cmd
}

func newDispatchPendingCommand(ctx *commandContext) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "dispatch-pending",
		Short: "Submit every pending asset whose source resolves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DispatchPending(container)
				if err != nil {
					return err
				}
				printBulk(cmd.OutOrStdout(), "Dispatched", resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Only dispatch assets in this container")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an asset and its stored files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DeleteAsset(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printJob(out io.Writer, job *ipc.JobResult) {
	if job == nil {
		return
	}
	line := fmt.Sprintf("Job %s in %s", job.Outcome, (time.Duration(job.DurationMS) * time.Millisecond).String())
	if job.Reason != "" {
		line += ": " + job.Reason
	}
	fmt.Fprintln(out, line)
	if job.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", job.Error)
	}
	if job.Variant != nil {
		fmt.Fprintf(out, "Variant: %s (%.1f MB)\n", job.Variant.Path, job.Variant.SizeMB)
	}
}

func printBulk(out io.Writer, verb string, resp *ipc.BulkResponse) {
	fmt.Fprintf(out, "%s %d asset(s)\n", verb, len(resp.Submitted))
	printSkips(out, "Skipped", resp.Skipped)
}

func printSkips(out io.Writer, label string, skips []ipc.Skip) {
	if len(skips) == 0 {
		return
	}
	rows := make([][]string, 0, len(skips))
	for _, s := range skips {
		rows = append(rows, []string{s.AssetID, s.Reason})
	}
	fmt.Fprintf(out, "%s %d asset(s):\n", label, len(skips))
	fmt.Fprint(out, renderTable([]string{"Asset", "Reason"}, rows, nil))
	fmt.Fprintln(out)
}
