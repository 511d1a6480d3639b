package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/quailyquaily/keen/config"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/internal/clifmt"
	"github.com/quailyquaily/keen/notify"
	"github.com/quailyquaily/keen/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSettingsCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Configure the Kindle address and SMTP account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			cur, err := a.settings(ctx)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			hasPassword := func(account string) bool { return a.password(ctx, account) != "" }
			next, pw, err := p.settings(cur, hasPassword)
			if err != nil {
				return err
			}
			if err := saveSettings(ctx, a, cur, next, pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), clifmt.Success("Settings saved"), clifmt.Dim(a.settingsPath))
			_ = notifierFromViper(a.v, a.log).Notify(ctx, notify.Notification{Title: pipeline.AppName, Subtitle: "Settings saved"})
			return nil
		},
	}
}

// saveSettings writes the file and stores a new password in the keychain.
// An empty password keeps whatever is stored. When the SMTP account changed,
// the previous account's keychain entry is removed.
func saveSettings(ctx context.Context, a *app, prev, s config.Settings, password string) error {
	s = s.Normalize()
	if password != "" {
		if s.SMTPEmail == "" {
			return errors.New("an SMTP email is required to store a password")
		}
		if err := a.store.Set(ctx, s.SMTPEmail, password); err != nil {
			a.log.Error("keychain_store_failed", "account", guard.MaskEmail(s.SMTPEmail), "error", err.Error())
			return fmt.Errorf("store password in keychain: %w", err)
		}
	}
	if err := config.Save(a.settingsPath, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	a.log.Info("settings_saved", "kindle_email", guard.MaskEmail(s.KindleEmail), "smtp_email", guard.MaskEmail(s.SMTPEmail))

	if accountChanged(prev.SMTPEmail, s.SMTPEmail) {
		if err := a.store.Delete(ctx, prev.SMTPEmail); err != nil {
			a.log.Warn("keychain_delete_failed", "account", guard.MaskEmail(prev.SMTPEmail), "error", err.Error())
		}
	}
	return nil
}

func accountChanged(prev, next string) bool {
	prev = strings.TrimSpace(prev)
	return prev != "" && !strings.EqualFold(prev, strings.TrimSpace(next))
}

type prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	} else {
		p.readPassword = p.line
	}
	return p
}

func (p *prompter) line() (string, error) {
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// ask shows current as the default; a blank answer keeps it.
func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	v, err := p.line()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return current, nil
		}
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

// settings asks for every field. hasPassword reports whether an account
// already has a usable password; a switched account without one must get a
// new password.
func (p *prompter) settings(cur config.Settings, hasPassword func(account string) bool) (config.Settings, string, error) {
	next := cur
	var err error
	fmt.Fprintln(p.out, clifmt.Headerf("Keen settings"))
	if next.KindleEmail, err = p.ask("Kindle email (e.g. yourname@kindle.com)", cur.KindleEmail); err != nil {
		return cur, "", err
	}
	if next.SMTPEmail, err = p.ask("Gmail address", cur.SMTPEmail); err != nil {
		return cur, "", err
	}
	if next.SMTPServer, err = p.ask("SMTP server", cur.SMTPServer); err != nil {
		return cur, "", err
	}
	port, err := p.ask("SMTP port", strconv.Itoa(cur.SMTPPort))
	if err != nil {
		return cur, "", err
	}
	if next.SMTPPort, err = strconv.Atoi(port); err != nil || next.SMTPPort <= 0 || next.SMTPPort > 65535 {
		return cur, "", fmt.Errorf("invalid smtp port: %q", port)
	}

	has := hasPassword != nil && hasPassword(next.SMTPEmail)
	fmt.Fprintln(p.out, clifmt.Dim("Get an app password at myaccount.google.com/apppasswords"))
	if has {
		fmt.Fprint(p.out, "Gmail app password (leave blank to keep current): ")
	} else {
		fmt.Fprint(p.out, "Gmail app password: ")
	}
	pw, err := p.readPassword()
	if err != nil && !errors.Is(err, io.EOF) {
		return cur, "", err
	}
	pw = strings.TrimSpace(pw)
	if pw == "" && !has && accountChanged(cur.SMTPEmail, next.SMTPEmail) {
		return cur, "", fmt.Errorf("%w for %s", errPasswordRequired, guard.MaskEmail(next.SMTPEmail))
	}
	return next, pw, nil
}

var errPasswordRequired = errors.New("an app password is required")
