package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// exitError carries a process exit code. An empty message means the command
// already reported the failure.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// newRootCmd returns the command tree and a cleanup func that releases what
// the subcommand opened.
func newRootCmd() (*cobra.Command, func()) {
	return newRootCmdWith(nil)
}

// newRootCmdWith lets configure adjust the app once it is assembled.
func newRootCmdWith(configure func(*app)) (*cobra.Command, func()) {
	v := viper.New()
	var cfgFile string
	var a *app

	cmd := &cobra.Command{
		Use:           "keen",
		Short:         "Send web articles to your Kindle",
		Long:          "keen fetches an article, extracts the readable text and mails it to your Kindle address as an HTML attachment.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initViper(v, cfgFile); err != nil {
				return err
			}
			var err error
			if a, err = newApp(v, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if configure != nil {
				configure(a)
			}
			return nil
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("keen %s (commit: %s)\n", version, commit))

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <settings dir>/keen.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "also log to stderr")
	_ = v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.console", cmd.PersistentFlags().Lookup("verbose"))

	getApp := func() *app { return a }
	cmd.AddCommand(
		newSendCmd(getApp),
		newClipboardCmd(getApp),
		newSettingsCmd(getApp),
		newCheckCmd(getApp),
		newDiagnoseCmd(getApp),
		newHistoryCmd(getApp),
	)
	cleanup := func() {
		if a != nil {
			a.Close()
		}
	}
	return cmd, cleanup
}
