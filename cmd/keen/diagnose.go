package main

import (
	"fmt"

	"github.com/quailyquaily/keen/extract"
	"github.com/quailyquaily/keen/guard"
	"github.com/spf13/cobra"
)

const (
	exitDiagnoseFailed = 1
	exitFetchFailed    = 2
)

func newDiagnoseCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <url>",
		Short: "Fetch and extract a URL without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			target := guard.RedactURL(args[0])

			a.log.Info("diagnostics_start", "url", target)
			fmt.Fprintf(w, "Testing extraction for: %s\n", target)

			es := a.extractSettings()
			doc, err := a.fetcher(es).Fetch(ctx, args[0])
			if err != nil {
				a.log.Error("diagnostics_fetch_failed", "url", target, "error", a.redactor.Error(err))
				fmt.Fprintln(w, "Fetch failed:", a.redactor.Error(err))
				return &exitError{code: exitFetchFailed}
			}

			art, err := extract.New(es, a.log).Extract(doc.Body, doc.FinalURL)
			if err != nil {
				a.log.Error("diagnostics_failed", "url", target, "error", a.redactor.Error(err))
				fmt.Fprintf(w, "Diagnostics failed: %s. See %s\n", a.redactor.Error(err), a.v.GetString("log.path"))
				return &exitError{code: exitDiagnoseFailed}
			}

			a.log.Info("diagnostics_end", "title", art.Title, "extracted_chars", art.Chars())
			fmt.Fprintf(w, "Title: %s\n", art.Title)
			if art.Author != "" {
				fmt.Fprintf(w, "Author: %s\n", art.Author)
			}
			fmt.Fprintf(w, "Fetched bytes: %d (status %d)\n", len(doc.Body), doc.Status)
			fmt.Fprintf(w, "Extracted chars: %d\n", art.Chars())
			return nil
		},
	}
}
