package main

import (
	"github.com/spf13/cobra"

	"archivist/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the archivist daemon in the foreground",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Enable development logging")
	return cmd
}
