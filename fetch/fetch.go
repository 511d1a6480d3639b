// Package fetch downloads article documents through the outbound guard.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/quailyquaily/keen/extract"
	"github.com/quailyquaily/keen/guard"
)

const (
	DefaultUserAgent  = "keen/1.0 (+https://github.com/quailyquaily/keen)"
	FallbackUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrMissingHost       = errors.New("url has no host")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrTooLarge          = errors.New("document exceeds max file size")
	ErrTooSmall          = errors.New("document below min file size")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("non-2xx status: %d", e.Code) }

type Document struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
}

type Fetcher struct {
	guard    *guard.Guard
	settings extract.Settings
	client   *http.Client
	log      *slog.Logger
}

type Option func(*Fetcher)

// WithTransport replaces the guarded transport. Guard checks on the request
// URL and every redirect still apply.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.client.Transport = rt
		}
	}
}

func New(g *guard.Guard, settings extract.Settings, log *slog.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	settings = settings.WithDefaults()
	f := &Fetcher{
		guard:    g,
		settings: settings,
		log:      log,
	}
	f.client = &http.Client{
		Transport:     g.Transport(),
		Timeout:       settings.DownloadTimeout,
		CheckRedirect: f.checkRedirect,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL with the configured user agent and retries once with a
// desktop browser user agent when that fails. Guard rejections are never
// retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	u, err := ParseHTTPURL(rawURL)
	if err != nil {
		return Document{}, err
	}
	if err := f.guard.Check(ctx, u.String()).Err(); err != nil {
		return Document{}, err
	}

	ua := f.settings.UserAgent()
	if ua == "" {
		ua = DefaultUserAgent
	}
	doc, err := f.get(ctx, u, ua)
	if err == nil || !retryable(ctx, err) {
		return doc, err
	}

	f.log.Info("fetch_retry", "host", u.Hostname(), "error", errorKind(err))
	doc, err = f.get(ctx, u, FallbackUserAgent)
	if err != nil {
		return Document{}, err
	}
	f.log.Info("fetch_fallback_ok", "host", u.Hostname(), "status", doc.Status)
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, u *url.URL, ua string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if c := strings.TrimSpace(f.settings.Cookie); c != "" {
		req.Header.Set("Cookie", c)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return Document{}, &StatusError{Code: resp.StatusCode}
	}

	maxBytes := f.settings.MaxFileSize
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return Document{}, err
	}
	if int64(len(body)) > maxBytes {
		return Document{}, ErrTooLarge
	}
	if int64(len(body)) < f.settings.MinFileSize {
		return Document{}, ErrTooSmall
	}

	return Document{
		URL:         u.String(),
		FinalURL:    resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > f.settings.MaxRedirects {
		return ErrTooManyRedirects
	}
	if !allowedScheme(req.URL.Scheme) {
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, req.URL.Scheme)
	}
	out := f.guard.Check(req.Context(), req.URL.String())
	if !out.Allowed {
		f.log.Warn("fetch_redirect_blocked", "host", out.Host, "reason", string(out.Reason), "class", string(out.Class))
		return out.Err()
	}
	return nil
}

// ParseHTTPURL accepts only absolute http(s) URLs with a host. Redirect
// targets go through the same scheme check.
func ParseHTTPURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("missing url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if !allowedScheme(u.Scheme) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}
	return u, nil
}

func allowedScheme(s string) bool {
	switch strings.ToLower(s) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, guard.ErrRejected) &&
		!errors.Is(err, ErrUnsupportedScheme) &&
		!errors.Is(err, ErrTooLarge)
}

// errorKind names the failure without echoing URLs.
func errorKind(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.Code)
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, ErrTooSmall):
		return "too_small"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport_error"
	}
}
