package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/quailyquaily/keen/config"
	"github.com/quailyquaily/keen/db"
	"github.com/quailyquaily/keen/extract"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/internal/logutil"
	"github.com/quailyquaily/keen/internal/pathutil"
	"github.com/quailyquaily/keen/notify"
	"github.com/spf13/viper"
)

const configName = "keen"

func setViperDefaults(v *viper.Viper) {
	v.SetDefault("smtp_server", config.DefaultSMTPServer)
	v.SetDefault("smtp_port", config.DefaultSMTPPort)
	v.SetDefault("settings_path", config.DefaultPath())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(pathutil.LogDir(), logutil.DefaultFileName))
	v.SetDefault("log.console", false)

	v.SetDefault("audit.jsonl_path", filepath.Join(pathutil.LogDir(), "audit.jsonl"))
	v.SetDefault("audit.rotate_max_bytes", int64(10*1024*1024))

	v.SetDefault("guard.dns_timeout", 5*time.Second)
	v.SetDefault("guard.redaction.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.pool.max_open_conns", 1)
	v.SetDefault("db.pool.max_idle_conns", 1)
	v.SetDefault("db.pool.conn_max_lifetime", 0)
	v.SetDefault("db.sqlite.busy_timeout_ms", 5000)
	v.SetDefault("db.sqlite.wal", true)
	v.SetDefault("db.sqlite.foreign_keys", true)

	v.SetDefault("extract.settings_path", "")
	v.SetDefault("notify.osascript", true)
	v.SetDefault("smtp.timeout", 30*time.Second)
}

// initViper loads .env, then the optional config file, then the
// environment. KINDLE_EMAIL and the SMTP_* variables are read unprefixed.
func initViper(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	setViperDefaults(v)

	v.SetEnvPrefix("KEEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("kindle_email", "KINDLE_EMAIL")
	_ = v.BindEnv("smtp_email", "SMTP_EMAIL")
	_ = v.BindEnv("smtp_server", "SMTP_SERVER")
	_ = v.BindEnv("smtp_port", "SMTP_PORT")
	_ = v.BindEnv("notify.osascript", "KEEN_OSASCRIPT_NOTIFY")

	if strings.TrimSpace(cfgFile) != "" {
		v.SetConfigFile(pathutil.ExpandHomePath(cfgFile))
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}
	v.SetConfigName(configName)
	v.AddConfigPath(pathutil.SettingsDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loggerFromViper(v *viper.Viper, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	return logutil.New(logutil.Config{
		Level:   v.GetString("log.level"),
		Path:    pathutil.ExpandHomePath(v.GetString("log.path")),
		Console: v.GetBool("log.console"),
		Stderr:  stderr,
	})
}

// baseSettingsFromViper covers defaults, config file and environment. The
// settings file is overlaid later by config.Load.
func baseSettingsFromViper(v *viper.Viper) config.Settings {
	return config.Settings{
		KindleEmail: v.GetString("kindle_email"),
		SMTPEmail:   v.GetString("smtp_email"),
		SMTPServer:  v.GetString("smtp_server"),
		SMTPPort:    v.GetInt("smtp_port"),
	}
}

func guardConfigFromViper(v *viper.Viper) guard.Config {
	var patterns []guard.RegexPattern
	_ = v.UnmarshalKey("guard.redaction.patterns", &patterns)

	return guard.Config{
		DNSTimeout: v.GetDuration("guard.dns_timeout"),
		Redaction: guard.RedactionConfig{
			Enabled:  v.GetBool("guard.redaction.enabled"),
			Patterns: patterns,
		},
		Audit: guard.AuditConfig{
			JSONLPath:      pathutil.ExpandHomePath(strings.TrimSpace(v.GetString("audit.jsonl_path"))),
			RotateMaxBytes: v.GetInt64("audit.rotate_max_bytes"),
		},
	}
}

func auditSinkFromConfig(cfg guard.AuditConfig, log *slog.Logger) guard.AuditSink {
	if strings.TrimSpace(cfg.JSONLPath) == "" {
		return guard.NopAuditSink{}
	}
	s, err := guard.NewJSONLAuditSink(cfg.JSONLPath, cfg.RotateMaxBytes)
	if err != nil {
		log.Warn("audit_sink_error", "error", err.Error())
		return guard.NopAuditSink{}
	}
	return s
}

func dbConfigFromViper(v *viper.Viper) db.Config {
	cfg := db.DefaultConfig()

	cfg.Driver = v.GetString("db.driver")
	cfg.DSN = v.GetString("db.dsn")
	cfg.AutoMigrate = v.GetBool("db.automigrate")

	cfg.Pool.MaxOpenConns = v.GetInt("db.pool.max_open_conns")
	cfg.Pool.MaxIdleConns = v.GetInt("db.pool.max_idle_conns")
	cfg.Pool.ConnMaxLifetime = v.GetDuration("db.pool.conn_max_lifetime")
	if cfg.Pool.ConnMaxLifetime < 0 {
		cfg.Pool.ConnMaxLifetime = 0
	}

	cfg.SQLite.BusyTimeoutMs = v.GetInt("db.sqlite.busy_timeout_ms")
	cfg.SQLite.WAL = v.GetBool("db.sqlite.wal")
	cfg.SQLite.ForeignKeys = v.GetBool("db.sqlite.foreign_keys")

	if cfg.Pool.MaxOpenConns <= 0 {
		cfg.Pool.MaxOpenConns = 1
	}
	if cfg.Pool.MaxIdleConns <= 0 {
		cfg.Pool.MaxIdleConns = 1
	}
	if cfg.SQLite.BusyTimeoutMs <= 0 {
		cfg.SQLite.BusyTimeoutMs = 5000
	}
	return cfg
}

func extractSettingsFromViper(v *viper.Viper, log *slog.Logger) extract.Settings {
	path := pathutil.ExpandHomePath(v.GetString("extract.settings_path"))
	s, err := extract.LoadSettings(path)
	if err != nil {
		log.Warn("extract_settings_load_failed", "error", err.Error())
	}
	return s
}

func notifierFromViper(v *viper.Viper, log *slog.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.LogNotifier{Log: log}}
	if v.GetBool("notify.osascript") {
		notifiers = append(notifiers, notify.NewOSAScriptNotifier())
	}
	return notifiers
}
