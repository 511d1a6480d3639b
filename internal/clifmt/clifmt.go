// Package clifmt colors command output when stdout is a terminal.
package clifmt

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func Headerf(format string, args ...any) string {
	return colorize("1;36", fmt.Sprintf(format, args...))
}

func Success(text string) string {
	return colorize("32", text)
}

func Warn(text string) string {
	return colorize("33", text)
}

func Fail(text string) string {
	return colorize("1;31", text)
}

func Dim(text string) string {
	return colorize("2", text)
}

func Key(text string) string {
	return colorize("1;33", text)
}

// Field renders "key: value" with the key highlighted.
func Field(key string, value any) string {
	return Key(key+":") + " " + fmt.Sprint(value)
}

// Status colors a delivery or guard decision word.
func Status(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent", "allow", "allowed", "ok":
		return Success(s)
	case "blocked", "reject", "rejected":
		return Warn(s)
	default:
		return Fail(s)
	}
}

func colorize(code string, text string) string {
	if !useColor() {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
