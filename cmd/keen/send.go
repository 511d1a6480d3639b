package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/quailyquaily/keen/internal/clifmt"
	"github.com/quailyquaily/keen/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSendCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <url>...",
		Short: "Send one or more articles to your Kindle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			var g errgroup.Group
			for _, raw := range args {
				g.Go(func() error {
					res, err := svc.Send(cmd.Context(), raw, pipeline.ActionPasteURL)
					mu.Lock()
					printResult(out, a, res)
					mu.Unlock()
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func printResult(w io.Writer, a *app, res pipeline.Result) {
	if res.Err == nil {
		fmt.Fprintf(w, "%s %s %s\n", clifmt.Status("sent"), res.Title, clifmt.Dim(fmt.Sprintf("(%d bytes, %s)", res.HTMLBytes, res.URLRedacted)))
		return
	}
	status := string(res.Status)
	if status == "" {
		status = "failed"
	}
	fmt.Fprintf(w, "%s %s %s\n", clifmt.Status(status), res.URLRedacted, clifmt.Dim(a.redactor.Error(res.Err)))
}
