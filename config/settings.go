// Package config persists the user's delivery settings and moves legacy
// plaintext SMTP passwords into the keychain.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/internal/pathutil"
	"github.com/quailyquaily/keen/secrets"
	"github.com/spf13/cast"
)

const (
	DefaultSMTPServer = "smtp.gmail.com"
	DefaultSMTPPort   = 587

	FileName = "config.json"

	legacyPasswordKey = "smtp_password"
)

// ErrMissingConfig is returned by Validate when a delivery cannot be
// attempted at all.
var ErrMissingConfig = errors.New("missing email configuration, run `keen settings` to configure")

// Settings never carries the SMTP password.
type Settings struct {
	KindleEmail string `json:"kindle_email"`
	SMTPEmail   string `json:"smtp_email"`
	SMTPServer  string `json:"smtp_server"`
	SMTPPort    int    `json:"smtp_port"`
}

func DefaultPath() string {
	return filepath.Join(pathutil.SettingsDir(), FileName)
}

// Normalize trims every field and fills server and port defaults.
func (s Settings) Normalize() Settings {
	s.KindleEmail = strings.TrimSpace(s.KindleEmail)
	s.SMTPEmail = strings.TrimSpace(s.SMTPEmail)
	s.SMTPServer = strings.TrimSpace(s.SMTPServer)
	if s.SMTPServer == "" {
		s.SMTPServer = DefaultSMTPServer
	}
	if s.SMTPPort <= 0 || s.SMTPPort > 65535 {
		s.SMTPPort = DefaultSMTPPort
	}
	return s
}

// Validate requires both addresses and a password.
func (s Settings) Validate(password string) error {
	if s.KindleEmail == "" || s.SMTPEmail == "" || password == "" {
		return ErrMissingConfig
	}
	return nil
}

// Load starts from base (defaults and environment), overlays the settings
// file at path if it exists, and migrates a legacy smtp_password entry into
// store. A missing or unreadable file is not an error.
func Load(ctx context.Context, path string, base Settings, store secrets.Store, log *slog.Logger) (Settings, error) {
	if log == nil {
		log = slog.Default()
	}
	out := base.Normalize()

	raw, err := readRaw(path)
	if err != nil {
		log.Warn("config_load_failed", "error", errorKind(err))
		return out, nil
	}
	if raw == nil {
		return out, nil
	}

	out = overlay(out, raw).Normalize()

	if pw := strings.TrimSpace(cast.ToString(raw[legacyPasswordKey])); pw != "" {
		migratePassword(ctx, path, out, pw, store, log)
	}
	return out, nil
}

// Save writes s to path, creating the directory with owner-only access.
func Save(path string, s Settings) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("missing settings path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func migratePassword(ctx context.Context, path string, s Settings, pw string, store secrets.Store, log *slog.Logger) {
	if s.SMTPEmail == "" || store == nil {
		return
	}
	if err := store.Set(ctx, s.SMTPEmail, pw); err != nil {
		log.Error("config_password_migration_failed", "account", guard.MaskEmail(s.SMTPEmail), "error", err.Error())
		return
	}
	if err := Save(path, s); err != nil {
		log.Error("config_password_migration_failed", "account", guard.MaskEmail(s.SMTPEmail), "error", err.Error())
		return
	}
	log.Info("config_password_migrated", "account", guard.MaskEmail(s.SMTPEmail))
}

func readRaw(path string) (map[string]any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func overlay(s Settings, raw map[string]any) Settings {
	if v, ok := raw["kindle_email"]; ok {
		s.KindleEmail = cast.ToString(v)
	}
	if v, ok := raw["smtp_email"]; ok {
		s.SMTPEmail = cast.ToString(v)
	}
	if v, ok := raw["smtp_server"]; ok {
		s.SMTPServer = cast.ToString(v)
	}
	if v, ok := raw["smtp_port"]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			s.SMTPPort = n
		}
	}
	return s
}

// errorKind keeps file contents out of the log.
func errorKind(err error) string {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		return "json_syntax_error"
	case errors.As(err, &typ):
		return "json_type_error"
	case errors.Is(err, os.ErrPermission):
		return "permission_denied"
	default:
		return fmt.Sprintf("%T", err)
	}
}
