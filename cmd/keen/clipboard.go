package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/pipeline"
	"github.com/spf13/cobra"
)

var errNoClipboardURL = errors.New("no valid http(s) URL in clipboard")

func newClipboardCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clipboard",
		Short: "Send the article whose URL is on the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			text, err := clipboard.ReadAll()
			if err != nil {
				a.log.Error("clipboard_read_failed", "error", err.Error())
				return fmt.Errorf("read clipboard: %w", err)
			}
			raw, err := clipboardURL(text)
			if err != nil {
				a.log.Warn("clipboard_invalid_url")
				return err
			}
			a.log.Info("clipboard_url_detected", "url", guard.RedactURL(raw))

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res := <-svc.Dispatch(cmd.Context(), raw, pipeline.ActionClipboard)
			printResult(cmd.OutOrStdout(), a, res)
			if res.Err != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

// clipboardURL accepts the clipboard only when it holds a single http(s)
// URL, surrounding whitespace aside.
func clipboardURL(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\r\n") {
		return "", errNoClipboardURL
	}
	u, err := pipeline.ValidateURL(text)
	if err != nil {
		return "", errNoClipboardURL
	}
	return u, nil
}
