// Package pipeline runs one article delivery end to end: validate, guard,
// fetch, extract, render and send.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quailyquaily/keen/config"
	"github.com/quailyquaily/keen/extract"
	"github.com/quailyquaily/keen/fetch"
	"github.com/quailyquaily/keen/guard"
	"github.com/quailyquaily/keen/history"
	"github.com/quailyquaily/keen/internal/strutil"
	"github.com/quailyquaily/keen/mailer"
	"github.com/quailyquaily/keen/notify"
)

const (
	AppName = "Keen"

	ActionPasteURL  = "paste_url"
	ActionClipboard = "clipboard"

	maxTitleNotify = 60
	maxErrorNotify = 120
	maxFetchNotify = 80
)

type Checker interface {
	Check(ctx context.Context, rawURL string) guard.Outcome
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetch.Document, error)
}

type Extractor interface {
	Extract(doc []byte, pageURL string) (extract.Article, error)
}

type Options struct {
	Guard     Checker
	Fetcher   Fetcher
	Extractor Extractor
	Sender    mailer.Sender

	Settings config.Settings
	Password string

	History  history.Store
	Audit    guard.AuditSink
	Notifier notify.Notifier
	Redactor *guard.Redactor
	Log      *slog.Logger
	Now      func() time.Time
}

// Service holds only read-only collaborators, so concurrent sends share no
// mutable state.
type Service struct {
	guard     Checker
	fetcher   Fetcher
	extractor Extractor
	sender    mailer.Sender

	settings config.Settings
	password string

	history  history.Store
	audit    guard.AuditSink
	notifier notify.Notifier
	redactor *guard.Redactor
	log      *slog.Logger
	now      func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		guard:     opts.Guard,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		sender:    opts.Sender,
		settings:  opts.Settings.Normalize(),
		password:  opts.Password,
		history:   opts.History,
		audit:     opts.Audit,
		notifier:  opts.Notifier,
		redactor:  opts.Redactor,
		log:       opts.Log,
		now:       opts.Now,
	}
	if s.history == nil {
		s.history = history.NopStore{}
	}
	if s.audit == nil {
		s.audit = guard.NopAuditSink{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{Log: s.log}
	}
	if s.redactor == nil {
		s.redactor = guard.NewRedactor(guard.RedactionConfig{})
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type Result struct {
	Action         string
	URLRedacted    string
	Host           string
	Title          string
	HTMLBytes      int
	ExtractedChars int
	Status         history.Status
	Err            error
}

// Dispatch starts one send on its own goroutine and returns at once. The
// send runs to completion even if ctx is canceled later; the channel
// receives exactly one Result and is then closed.
func (s *Service) Dispatch(ctx context.Context, rawURL, action string) <-chan Result {
	ch := make(chan Result, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(ch)
		res, _ := s.Send(detached, rawURL, action)
		ch <- res
	}()
	return ch
}

// Send performs a full delivery on the calling goroutine.
func (s *Service) Send(ctx context.Context, rawURL, action string) (Result, error) {
	started := s.now().UTC()
	res := Result{Action: action, URLRedacted: guard.RedactURL(rawURL)}

	target, err := ValidateURL(rawURL)
	if err != nil {
		s.log.Warn("send_invalid_url", "action", action)
		s.notify(ctx, "Invalid URL", "Please enter a valid http(s) URL")
		res = s.fail(res, stageErr(StageValidate, err))
		return res, res.Err
	}

	out := s.guard.Check(ctx, target)
	res.Host = out.Host
	s.emit(ctx, guard.CheckEvent(action, target, out))
	if !out.Allowed {
		s.log.Warn("guard_rejected", "action", action, "host", out.Host, "reason", string(out.Reason), "class", string(out.Class))
		s.notify(ctx, "Blocked", "URL target is not allowed")
		res = s.fail(res, stageErr(StageGuard, out.Err()))
		res.Status = history.StatusBlocked
		s.record(ctx, res, started)
		return res, res.Err
	}

	if err := s.settings.Validate(s.password); err != nil {
		res = s.fail(res, stageErr(StageConfig, err))
		s.finishFailed(ctx, res, started, err.Error())
		return res, res.Err
	}

	s.notify(ctx, "Starting...", "Preparing article for Kindle")
	s.log.Info("send_started", "action", action, "url", res.URLRedacted)

	doc, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		s.log.Error("fetch_failed", "action", action, "url", res.URLRedacted, "error", s.redact(err))
		res = s.fail(res, stageErr(StageFetch, err))
		s.finishFailed(ctx, res, started, "Could not fetch: "+strutil.TruncateRunes(s.redact(err), maxFetchNotify))
		return res, res.Err
	}

	s.log.Info("extraction_start", "action", action, "bytes", len(doc.Body))
	art, err := s.extractor.Extract(doc.Body, doc.FinalURL)
	if err != nil {
		s.log.Error("extraction_failed", "action", action, "url", res.URLRedacted, "error", s.redact(err))
		res = s.fail(res, stageErr(StageExtract, err))
		msg := "Could not extract content"
		if !errors.Is(err, extract.ErrNoContent) {
			msg = strutil.TruncateRunes(s.redact(err), maxErrorNotify)
		}
		s.finishFailed(ctx, res, started, msg)
		return res, res.Err
	}
	res.Title = art.Title
	res.ExtractedChars = art.Chars()
	s.log.Info("extraction_end", "action", action, "title", art.Title, "extracted_chars", res.ExtractedChars)

	body, err := mailer.Render(art, target, s.now())
	if err != nil {
		res = s.fail(res, stageErr(StageRender, err))
		s.finishFailed(ctx, res, started, strutil.TruncateRunes(s.redact(err), maxErrorNotify))
		return res, res.Err
	}
	res.HTMLBytes = len(body)
	s.log.Info("conversion_end", "action", action, "title", art.Title, "html_bytes", res.HTMLBytes)

	msg := mailer.Message{
		From:  s.settings.SMTPEmail,
		To:    s.settings.KindleEmail,
		Title: art.Title,
		HTML:  body,
	}
	s.log.Info("email_send_start",
		"to", guard.MaskEmail(msg.To),
		"from", guard.MaskEmail(msg.From),
		"smtp_server", s.settings.SMTPServer,
		"smtp_port", s.settings.SMTPPort,
		"title", art.Title,
	)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error("email_send_failed", "action", action, "error", s.redact(err))
		res = s.fail(res, stageErr(StageSend, err))
		s.finishFailed(ctx, res, started, strutil.TruncateRunes(s.redact(err), maxErrorNotify))
		return res, res.Err
	}

	res.Status = history.StatusSent
	s.log.Info("email_send_end", "action", action, "title", art.Title)
	s.notify(ctx, "Sent ✅", strutil.TruncateRunes(art.Title, maxTitleNotify))
	s.record(ctx, res, started)
	return res, nil
}

func (s *Service) fail(res Result, err *StageError) Result {
	res.Status = history.StatusFailed
	res.Err = err
	return res
}

func (s *Service) finishFailed(ctx context.Context, res Result, started time.Time, message string) {
	s.notify(ctx, "Error", message)
	s.record(ctx, res, started)
}

func (s *Service) record(ctx context.Context, res Result, started time.Time) {
	entry := history.Entry{
		Action:         res.Action,
		URLRedacted:    res.URLRedacted,
		Host:           res.Host,
		Title:          res.Title,
		Status:         res.Status,
		HTMLBytes:      res.HTMLBytes,
		ExtractedChars: res.ExtractedChars,
		CreatedAt:      started,
		FinishedAt:     s.now().UTC(),
	}
	if res.Err != nil {
		entry.Stage = string(StageOf(res.Err))
		entry.Error = strutil.TruncateRunes(s.redact(res.Err), 500)
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.log.Warn("history_record_failed", "error", s.redact(err))
	}

	if res.Status == history.StatusBlocked {
		return
	}
	ev := guard.AuditEvent{
		Kind:        guard.EventDelivery,
		Action:      res.Action,
		URLRedacted: res.URLRedacted,
		Host:        res.Host,
		Decision:    string(res.Status),
		Title:       res.Title,
		Bytes:       res.HTMLBytes,
	}
	if res.Err != nil {
		ev.Reason = entry.Stage
		ev.Error = entry.Error
	}
	s.emit(ctx, ev)
}

func (s *Service) emit(ctx context.Context, ev guard.AuditEvent) {
	if err := s.audit.Emit(ctx, ev); err != nil {
		s.log.Warn("audit_emit_failed", "error", s.redact(err))
	}
}

func (s *Service) notify(ctx context.Context, subtitle, message string) {
	n := notify.Notification{Title: AppName, Subtitle: subtitle, Message: message}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notification_failed", "subtitle", subtitle, "error", err.Error())
	}
}

func (s *Service) redact(err error) string {
	return s.redactor.Error(err)
}
