package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/encoder"
	"archivist/internal/logging"
	"archivist/internal/preflight"
	"archivist/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run local preflight checks without the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			runner := services.ExecRunner{}

			report := encoder.NewProber(cfg.FFmpegBinary(),
				encoder.WithRunner(runner),
				encoder.WithLogger(logging.NewNop()),
				encoder.WithTimeout(time.Duration(cfg.Tools.ProbeTimeoutSeconds)*time.Second),
			).Probe(cmd.Context())

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
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

			for _, line := range renderSectionHeader("Encoder Tiers", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, tier := range report.Tiers {
				kind := statusInfo
				switch {
				case tier.Available:
					kind = statusOK
				case tier.Tested:
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(displayLabel(string(tier.Kind)), kind, tier.Reason, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, runner, report)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			return nil
		},
	}
}
