package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quailyquaily/keen/config"
	"github.com/quailyquaily/keen/fetch"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/secrets"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("KEEN_LOG_PATH", filepath.Join(dir, "logs", "keen.log"))
	t.Setenv("KEEN_AUDIT_JSONL_PATH", filepath.Join(dir, "logs", "audit.jsonl"))
	t.Setenv("KEEN_DB_DSN", filepath.Join(dir, "keen.db"))
	t.Setenv("KEEN_OSASCRIPT_NOTIFY", "0")
	for _, k := range []string{"KINDLE_EMAIL", "SMTP_EMAIL", "SMTP_SERVER", "SMTP_PORT", "SMTP_PASSWORD"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func runKeen(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runKeenWith(t, nil, args...)
}

func runKeenWith(t *testing.T, configure func(*app), args ...string) (string, error) {
	t.Helper()
	cmd, cleanup := newRootCmdWith(configure)
	defer cleanup()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	dir := isolateEnv(t)

	out, err := runKeen(t, "check", "http://127.0.0.1:8080/admin?token=abc")
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d, err = %v", exitCode(err), err)
	}
	if !strings.Contains(out, "non-public literal address") || !strings.Contains(out, "loopback") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "token=abc") {
		t.Fatalf("output leaked query: %s", out)
	}

	out, err = runKeen(t, "check", "http://8.8.8.8/")
	if err != nil {
		t.Fatalf("check public literal: %v\n%s", err, out)
	}
	if !strings.Contains(out, "allowed") || !strings.Contains(out, "8.8.8.8") {
		t.Fatalf("unexpected output: %s", out)
	}

	b, err := os.ReadFile(filepath.Join(dir, "logs", "audit.jsonl"))
	if err != nil {
		t.Fatalf("expected audit file: %v", err)
	}
	if n := strings.Count(string(b), "\n"); n != 2 {
		t.Fatalf("expected 2 audit lines, got %d", n)
	}
}

func TestSendCommand_MissingConfig(t *testing.T) {
	isolateEnv(t)
	out, err := runKeen(t, "send", "http://8.8.8.8/")
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d", exitCode(err))
	}
	if !strings.Contains(out, "missing email configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestSendCommand_BlockedURL(t *testing.T) {
	isolateEnv(t)
	out, err := runKeen(t, "send", "http://10.0.0.1/", "ftp://example.com/")
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d", exitCode(err))
	}
	if !strings.Contains(out, "blocked") || !strings.Contains(out, "failed") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = runKeen(t, "history", "--status", "blocked")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "http://10.0.0.1/") {
		t.Fatalf("history missing blocked entry: %s", out)
	}
}

func TestSettingsCommand_WritesFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "settings.json")
	t.Setenv("KEEN_SETTINGS_PATH", path)

	cmd, cleanup := newRootCmd()
	defer cleanup()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("me@kindle.com\nme@gmail.com\n\n465\n\n"))
	cmd.SetArgs([]string{"settings"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("settings: %v\n%s", err, out.String())
	}

	got, err := config.Load(t.Context(), path, config.Settings{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := config.Settings{KindleEmail: "me@kindle.com", SMTPEmail: "me@gmail.com", SMTPServer: config.DefaultSMTPServer, SMTPPort: 465}
	if got != want {
		t.Fatalf("saved = %+v, want %+v", got, want)
	}
}

func TestPrompter_BlankKeepsCurrent(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("new@kindle.com\n\n\n\nsecret\n"), &out)
	cur := config.Settings{KindleEmail: "old@kindle.com", SMTPEmail: "me@gmail.com", SMTPServer: "smtp.gmail.com", SMTPPort: 587}
	next, pw, err := p.settings(cur, func(string) bool { return true })
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if next.KindleEmail != "new@kindle.com" || next.SMTPEmail != "me@gmail.com" || next.SMTPPort != 587 {
		t.Fatalf("unexpected settings: %+v", next)
	}
	if pw != "secret" {
		t.Fatalf("password = %q", pw)
	}
	if !strings.Contains(out.String(), "leave blank to keep current") {
		t.Fatalf("expected keep-current hint: %s", out.String())
	}
	if strings.Contains(out.String(), "secret") {
		t.Fatal("password echoed in prompt output")
	}
}

func TestPrompter_ChangedAccountNeedsPassword(t *testing.T) {
	cur := config.Settings{KindleEmail: "me@kindle.com", SMTPEmail: "old@gmail.com", SMTPServer: "smtp.gmail.com", SMTPPort: 587}
	stored := func(account string) bool { return account == "old@gmail.com" }

	var out bytes.Buffer
	p := newPrompter(strings.NewReader("\nnew@gmail.com\n\n\n\n"), &out)
	if _, _, err := p.settings(cur, stored); !errors.Is(err, errPasswordRequired) {
		t.Fatalf("err = %v, want errPasswordRequired", err)
	}
	if strings.Contains(out.String(), "leave blank to keep current") {
		t.Fatalf("new account must not offer to keep a password: %s", out.String())
	}

	p = newPrompter(strings.NewReader("\nnew@gmail.com\n\n\nnew-pass\n"), &bytes.Buffer{})
	next, pw, err := p.settings(cur, stored)
	if err != nil || pw != "new-pass" || next.SMTPEmail != "new@gmail.com" {
		t.Fatalf("settings = %+v, %q, %v", next, pw, err)
	}
}

func TestSettingsCommand_ChangedAccountMovesKeychain(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "settings.json")
	t.Setenv("KEEN_SETTINGS_PATH", path)
	ctx := t.Context()

	old := config.Settings{KindleEmail: "me@kindle.com", SMTPEmail: "old@gmail.com", SMTPServer: config.DefaultSMTPServer, SMTPPort: 587}
	if err := config.Save(path, old); err != nil {
		t.Fatal(err)
	}
	store := secrets.NewKeyringStore(secrets.DefaultService)
	if err := store.Set(ctx, "old@gmail.com", "old-pass"); err != nil {
		t.Fatal(err)
	}

	cmd, cleanup := newRootCmd()
	defer cleanup()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("\nnew@gmail.com\n\n\nnew-pass\n"))
	cmd.SetArgs([]string{"settings"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("settings: %v\n%s", err, out.String())
	}

	if got, _ := store.Get(ctx, "new@gmail.com"); got != "new-pass" {
		t.Fatalf("new account password = %q", got)
	}
	if got, _ := store.Get(ctx, "old@gmail.com"); got != "" {
		t.Fatalf("old account entry should be deleted, got %q", got)
	}
}

func TestPrompter_InvalidPort(t *testing.T) {
	p := newPrompter(strings.NewReader("\n\n\nabc\n"), &bytes.Buffer{})
	if _, _, err := p.settings(config.Settings{SMTPPort: 587}, nil); err == nil {
		t.Fatal("expected invalid port error")
	}
}

func TestClipboardURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://example.com/a", "https://example.com/a", true},
		{"  http://example.com/\n", "http://example.com/", true},
		{"", "", false},
		{"hello world", "", false},
		{"see https://example.com/a", "", false},
		{"file:///etc/passwd", "", false},
	}
	for _, tc := range cases {
		got, err := clipboardURL(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("clipboardURL(%q) = %q, %v", tc.in, got, err)
		}
		if err != nil && !errors.Is(err, errNoClipboardURL) {
			t.Fatalf("unexpected error type: %v", err)
		}
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(&exitError{code: 2}) != 2 {
		t.Fatal("expected 2")
	}
	if exitCode(errors.New("x")) != 1 {
		t.Fatal("expected 1")
	}
}

func TestBaseSettingsFromViper(t *testing.T) {
	isolateEnv(t)
	t.Setenv("KINDLE_EMAIL", "env@kindle.com")
	t.Setenv("SMTP_PORT", "2525")
	v := viper.New()
	if err := initViper(v, ""); err != nil {
		t.Fatalf("initViper: %v", err)
	}
	s := baseSettingsFromViper(v)
	if s.KindleEmail != "env@kindle.com" || s.SMTPPort != 2525 || s.SMTPServer != config.DefaultSMTPServer {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if d := v.GetDuration("guard.dns_timeout"); d.Seconds() != 5 {
		t.Fatalf("dns timeout = %v", d)
	}
}

func TestDiagnoseCommand(t *testing.T) {
	isolateEnv(t)

	out, err := runKeen(t, "diagnose", "http://127.0.0.1/")
	if exitCode(err) != exitFetchFailed {
		t.Fatalf("exit code = %d, err = %v\n%s", exitCode(err), err, out)
	}
	if !strings.Contains(out, "Fetch failed:") || !strings.Contains(out, "non-public literal address") {
		t.Fatalf("unexpected output: %s", out)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>x</title></head><body></body></html>"))
	}))
	defer srv.Close()
	addr := srv.Listener.Addr().String()
	serveLocally := func(a *app) {
		a.guard.SetResolver(guard.LookupFunc(func(ctx context.Context, host string) ([]string, error) {
			if host == "news.example" {
				return []string{"93.184.216.34"}, nil
			}
			return nil, errors.New("no such host")
		}))
		a.fetchOpts = []fetch.Option{fetch.WithTransport(&http.Transport{
			Proxy: nil,
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		})}
	}

	out, err = runKeenWith(t, serveLocally, "diagnose", "http://news.example/empty?utm=1")
	if exitCode(err) != exitDiagnoseFailed {
		t.Fatalf("exit code = %d, err = %v\n%s", exitCode(err), err, out)
	}
	if !strings.Contains(out, "Diagnostics failed:") || strings.Contains(out, "Fetch failed:") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "utm=1") {
		t.Fatalf("output leaked query: %s", out)
	}
}
