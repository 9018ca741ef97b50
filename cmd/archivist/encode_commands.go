package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"archivist/internal/command"
	"archivist/internal/ipc"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var req ipc.CustomEncodeRequest
	var settings string
	cmd := &cobra.Command{
		Use:   "encode <id>",
		Short: "Produce a custom variant from a preset or explicit settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ID = args[0]
			if strings.TrimSpace(settings) != "" {
				var overrides command.Settings
				if err := json.Unmarshal([]byte(settings), &overrides); err != nil {
					return fmt.Errorf("parse --settings: %w", err)
				}
				req.Settings = &overrides
			}
			if req.PresetID == "" && req.Settings == nil {
				return fmt.Errorf("either --preset or --settings is required")
			}
			if _, err := command.ResolveSettings(req.PresetID, req.Settings); err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CustomEncode(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Custom encode queued for %s\n", req.ID)
				printJob(cmd.OutOrStdout(), resp.Job)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.PresetID, "preset", "", "Catalog preset id (see `archivist presets`)")
	cmd.Flags().StringVar(&settings, "settings", "", "JSON settings that override the preset")
	cmd.Flags().BoolVar(&req.Wait, "wait", false, "Wait for the encode to finish")
	return cmd
}

func newPresetsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "presets",
		Short:       "List custom encode presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := command.Presets()
			if asJSON {
				return writeJSON(cmd, presets)
			}
			rows := make([][]string, 0, len(presets))
			for _, p := range presets {
				rows = append(rows, []string{p.ID, p.Name, p.Description, presetSummary(p.Settings)})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Description", "Settings"}, rows, nil))
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func presetSummary(s command.Settings) string {
	s = s.Normalize()
	if s.AudioOnly {
		parts := []string{s.AudioCodec}
		if s.AudioBitrate != "" {
			parts = append(parts, s.AudioBitrate)
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprintf("%s %s %s", s.Container, s.VideoCodec, s.Resolution)
}
