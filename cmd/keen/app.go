package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/quailyquaily/keen/config"
	"github.com/quailyquaily/keen/db"
	"github.com/quailyquaily/keen/extract"
	"github.com/quailyquaily/keen/fetch"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/history"
	"github.com/quailyquaily/keen/mailer"
	"github.com/quailyquaily/keen/pipeline"
	"github.com/quailyquaily/keen/secrets"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// app carries the collaborators shared by the subcommands of one process.
type app struct {
	v   *viper.Viper
	log *slog.Logger

	guardCfg guard.Config
	guard    *guard.Guard
	redactor *guard.Redactor
	audit    guard.AuditSink
	store    secrets.Store

	settingsPath string
	fetchOpts    []fetch.Option

	closers []io.Closer
	gdb     *gorm.DB
}

func newApp(v *viper.Viper, stderr io.Writer) (*app, error) {
	log, logCloser, err := loggerFromViper(v, stderr)
	if err != nil {
		return nil, err
	}
	a := &app{
		v:            v,
		log:          log,
		store:        secrets.NewKeyringStore(secrets.DefaultService),
		settingsPath: strings.TrimSpace(v.GetString("settings_path")),
		closers:      []io.Closer{logCloser},
	}
	a.guardCfg = guardConfigFromViper(v)
	a.guard = guard.New(a.guardCfg, log)
	a.redactor = guard.NewRedactor(a.guardCfg.Redaction)
	a.audit = auditSinkFromConfig(a.guardCfg.Audit, log)
	a.closers = append(a.closers, a.audit)
	return a, nil
}

func (a *app) Close() {
	if a.gdb != nil {
		if err := db.Close(a.gdb); err != nil {
			a.log.Warn("db_close_failed", "error", err.Error())
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) settings(ctx context.Context) (config.Settings, error) {
	return config.Load(ctx, a.settingsPath, baseSettingsFromViper(a.v), a.store, a.log)
}

func (a *app) password(ctx context.Context, account string) string {
	pw, err := secrets.Lookup(ctx, a.store, &secrets.EnvResolver{}, account)
	if err != nil {
		a.log.Warn("keychain_lookup_failed", "account", guard.MaskEmail(account), "error", a.redactor.Error(err))
	}
	return pw
}

// historyStore opens the delivery database lazily. A database that cannot be
// opened disables history instead of failing the send.
func (a *app) historyStore(ctx context.Context) history.Store {
	if a.gdb == nil {
		gdb, err := db.Open(ctx, dbConfigFromViper(a.v))
		if err != nil {
			a.log.Warn("history_db_open_failed", "error", a.redactor.Error(err))
			return history.NopStore{}
		}
		a.gdb = gdb
	}
	return history.NewGormStore(a.gdb)
}

func (a *app) extractSettings() extract.Settings {
	return extractSettingsFromViper(a.v, a.log)
}

func (a *app) fetcher(s extract.Settings) *fetch.Fetcher {
	return fetch.New(a.guard, s, a.log, a.fetchOpts...)
}

func (a *app) service(ctx context.Context) (*pipeline.Service, error) {
	s, err := a.settings(ctx)
	if err != nil {
		return nil, err
	}
	pw := a.password(ctx, s.SMTPEmail)
	es := a.extractSettings()

	return pipeline.New(pipeline.Options{
		Guard:     a.guard,
		Fetcher:   a.fetcher(es),
		Extractor: extract.New(es, a.log),
		Sender: mailer.SMTPSender{
			Host:     s.SMTPServer,
			Port:     s.SMTPPort,
			Username: s.SMTPEmail,
			Password: pw,
			Timeout:  a.v.GetDuration("smtp.timeout"),
		},
		Settings: s,
		Password: pw,
		History:  a.historyStore(ctx),
		Audit:    a.audit,
		Notifier: notifierFromViper(a.v, a.log),
		Redactor: a.redactor,
		Log:      a.log,
	}), nil
}
