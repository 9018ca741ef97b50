package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := newCommandContext(&socketFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "archivist",
		Short:         "Archivist asset processing CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the archivist daemon socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newAssetsCommand(ctx))
	rootCmd.AddCommand(newRegisterCommand(ctx))
	rootCmd.AddCommand(newDispatchCommand(ctx))
	rootCmd.AddCommand(newDispatchPendingCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newRetryAllCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newCancelStuckCommand(ctx))
	rootCmd.AddCommand(newCancelAllCommand(ctx))
	rootCmd.AddCommand(newEncodeCommand(ctx))
	rootCmd.AddCommand(newPresetsCommand())
	rootCmd.AddCommand(newThumbnailsCommand(ctx))
	rootCmd.AddCommand(newReconcileCommand(ctx))
	rootCmd.AddCommand(newErrorsCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newDaemonRunCommand(ctx))
	rootCmd.AddCommand(newDaemonCommands(ctx)...)
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
