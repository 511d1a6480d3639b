package main

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/internal/clifmt"
	"github.com/spf13/cobra"
)

func newCheckCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Run the outbound address guard against a URL without fetching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			out := a.guard.Check(cmd.Context(), args[0])
			if err := a.audit.Emit(cmd.Context(), guard.CheckEvent("check", args[0], out)); err != nil {
				a.log.Warn("audit_emit_failed", "error", err.Error())
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, clifmt.Field("url", guard.RedactURL(args[0])))
			fmt.Fprintln(w, clifmt.Field("host", out.Host))
			if out.Allowed {
				addrs := make([]string, 0, len(out.Addrs))
				for _, ad := range out.Addrs {
					addrs = append(addrs, ad.String())
				}
				fmt.Fprintln(w, clifmt.Field("addresses", strings.Join(addrs, ", ")))
				fmt.Fprintln(w, clifmt.Field("decision", clifmt.Status("allowed")))
				return nil
			}
			fmt.Fprintln(w, clifmt.Field("decision", clifmt.Status("rejected")))
			fmt.Fprintln(w, clifmt.Field("reason", string(out.Reason)))
			if out.Class != "" {
				fmt.Fprintln(w, clifmt.Field("class", string(out.Class)))
			}
			return &exitError{code: 1}
		},
	}
}
