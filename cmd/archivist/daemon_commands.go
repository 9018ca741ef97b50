package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var launch daemonctl.LaunchOptions
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the archivist daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			opts := launch
			opts.ConfigPath = ctx.configPath()
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			if result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			} else {
				fmt.Fprintln(stdout, "Daemon started")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&launch.LogLevel, "log-level", "", "Override logging.level")
	startCmd.Flags().BoolVar(&launch.Development, "dev", false, "Enable development logging")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the archivist daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), cfg.PIDPath(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd}
}
