package main

import (
	"fmt"
	"os"

	"github.com/quailyquaily/keen/internal/clifmt"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd, cleanup := newRootCmd()
	err := cmd.Execute()
	cleanup()
	if err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, clifmt.Fail("error:"), msg)
		}
		os.Exit(exitCode(err))
	}
}
