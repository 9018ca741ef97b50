package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"archivist/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, encoder, and asset status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				renderStatus(out, resp, shouldColorize(out))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(out io.Writer, resp *ipc.StatusResponse, colorize bool) {
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	section("Daemon")
	daemonKind := statusOK
	if !resp.Running {
		daemonKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, fmt.Sprintf("running=%s pid=%d", yesNo(resp.Running), resp.PID), colorize))
	mode := fmt.Sprintf("%d workers, queue depth %d", resp.Workers, resp.QueueDepth)
	if resp.Sync {
		mode = "synchronous"
	}
	dispatcherKind := statusOK
	if !resp.Dispatcher {
		dispatcherKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Dispatcher", dispatcherKind, mode, colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, resp.DatabasePath, colorize))
	if resp.MetricsBind != "" {
		fmt.Fprintln(out, renderStatusLine("Metrics", statusInfo, resp.MetricsBind, colorize))
	}
	if resp.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, truncate(resp.LastError, 80), colorize))
	}
	fmt.Fprintln(out)

	section("Encoder")
	encoderKind := statusOK
	if resp.EncoderTier == "software" {
		encoderKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Tier", encoderKind, fmt.Sprintf("%s (%s)", displayLabel(resp.EncoderTier), resp.VideoEncoder), colorize))
	fmt.Fprintln(out)

	section("Pipelines")
	for _, health := range resp.StageHealth {
		kind := statusOK
		if !health.Ready {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(displayLabel(health.Name), kind, health.Detail, colorize))
	}
	fmt.Fprintln(out)

	section("Dependencies")
	for _, dep := range resp.Dependencies {
		kind := statusOK
		detail := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			detail = dep.Detail
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	fmt.Fprintln(out)

	section("Assets")
	rows := buildStatusRows(resp.AssetStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No assets registered")
		return
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(out)
}
