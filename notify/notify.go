// Package notify delivers short status messages to the user.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/quailyquaily/keen/internal/strutil"
)

type Notification struct {
	Title    string
	Subtitle string
	Message  string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier records every notification in the log.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification", "title", n.Title, "subtitle", n.Subtitle, "message", n.Message)
	return nil
}

const (
	DefaultOSAScriptPath = "/usr/bin/osascript"

	maxTitleChars    = 200
	maxSubtitleChars = 200
	maxMessageChars  = 500
)

// OSAScriptNotifier shows a macOS banner through AppleScript. On other
// platforms it does nothing.
type OSAScriptNotifier struct {
	Path string

	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

func NewOSAScriptNotifier() *OSAScriptNotifier {
	return &OSAScriptNotifier{Path: DefaultOSAScriptPath, goos: runtime.GOOS, run: runCommand}
}

func (o *OSAScriptNotifier) Notify(ctx context.Context, n Notification) error {
	if o.goos != "darwin" {
		return nil
	}
	path := strings.TrimSpace(o.Path)
	if path == "" {
		path = DefaultOSAScriptPath
	}
	return o.run(ctx, path, "-e", Script(n))
}

// Script renders the AppleScript display notification statement.
func Script(n Notification) string {
	return `display notification "` + escapeAppleScript(strutil.TruncateRunes(n.Message, maxMessageChars)) +
		`" with title "` + escapeAppleScript(strutil.TruncateRunes(n.Title, maxTitleChars)) +
		`" subtitle "` + escapeAppleScript(strutil.TruncateRunes(n.Subtitle, maxSubtitleChars)) + `"`
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range m {
		if x == nil {
			continue
		}
		if err := x.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
