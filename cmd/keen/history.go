package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/quailyquaily/keen/history"
	"github.com/quailyquaily/keen/internal/clifmt"
	"github.com/spf13/cobra"
)

func newHistoryCmd(getApp func() *app) *cobra.Command {
	var limit int
	var status string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			entries, err := a.historyStore(cmd.Context()).List(cmd.Context(), history.ListOptions{
				Limit:  limit,
				Status: history.Status(status),
			})
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), clifmt.Dim("no deliveries yet"))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tSTATUS\tACTION\tTITLE\tURL\tDETAIL")
			for _, e := range entries {
				detail := ""
				if e.Error != "" {
					detail = e.Stage + ": " + e.Error
				} else if e.HTMLBytes > 0 {
					detail = fmt.Sprintf("%d bytes", e.HTMLBytes)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime),
					e.Status, e.Action, e.Title, e.URLRedacted, detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (max 200)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: sent, blocked, failed")
	return cmd
}
