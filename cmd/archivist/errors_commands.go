package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archivist/internal/ipc"
)

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	errorsCmd := &cobra.Command{
		Use:   "errors",
		Short: "Inspect the processing error ledger",
	}
	errorsCmd.AddCommand(newErrorsListCommand(ctx))
	errorsCmd.AddCommand(newErrorsResolveCommand(ctx, "resolve", "Mark a ledger record resolved", true))
	errorsCmd.AddCommand(newErrorsResolveCommand(ctx, "unresolve", "Mark a ledger record unresolved", false))
	return errorsCmd
}

func newErrorsListCommand(ctx *commandContext) *cobra.Command {
	var req ipc.ErrorListRequest
	var all, resolvedOnly, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case resolvedOnly:
				resolved := true
				req.Resolved = &resolved
			case !all:
				resolved := false
				req.Resolved = &resolved
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ErrorList(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Records)
				}
				if len(resp.Records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No errors recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Records))
				for _, r := range resp.Records {
					rows = append(rows, []string{
						r.ID,
						r.CreatedAt.Local().Format(time.DateTime),
						displayLabel(r.Stage),
						r.AssetID,
						truncate(r.FileName, 30),
						truncate(r.Message, 60),
						yesNo(r.Resolved),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "When", "Stage", "Asset", "File", "Message", "Resolved"}, rows, nil))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Stage, "stage", "", "Filter by stage")
	cmd.Flags().StringVar(&req.AssetID, "asset", "", "Filter by asset id")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "Maximum number of records")
	cmd.Flags().BoolVar(&all, "all", false, "Include resolved records")
	cmd.Flags().BoolVar(&resolvedOnly, "resolved", false, "Only resolved records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newErrorsResolveCommand(ctx *commandContext, use, short string, resolved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ErrorResolve(args[0], resolved); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %s %sd\n", args[0], use)
				return nil
			})
		},
	}
}
