package guard

import (
	"net/url"
	"regexp"
	"strings"
)

// RedactURL keeps scheme, host and path, dropping userinfo, query and
// fragment.
func RedactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "<unparseable-url>"
	}
	clean := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath}
	return clean.String()
}

// MaskEmail hides the local part of an address: john@example.com becomes
// j***@example.com.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	i := strings.LastIndex(email, "@")
	if email == "" || i < 0 {
		return "<no-email>"
	}
	local, domain := email[:i], email[i+1:]
	masked := "*"
	if len(local) > 1 {
		masked = local[:1] + "***"
	}
	return masked + "@" + domain
}

type Redactor struct {
	patterns []namedRe
}

type namedRe struct {
	name string
	re   *regexp.Regexp
}

var (
	urlRe    = regexp.MustCompile(`(?i)\bhttps?://[^\s"'<>]+`)
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	bearerRe = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._-]{10,}\b`)
	kvRe     = regexp.MustCompile(`(?i)\b([A-Za-z0-9_-]{1,32})(\s*[:=]\s*)([A-Za-z0-9._-]{8,})`)
)

// NewRedactor builds a redactor for free-form text such as error messages.
// Built-in rules always apply; custom patterns only when cfg.Enabled.
func NewRedactor(cfg RedactionConfig) *Redactor {
	r := &Redactor{}
	if !cfg.Enabled {
		return r
	}
	for _, p := range cfg.Patterns {
		if strings.TrimSpace(p.Re) == "" {
			continue
		}
		re, err := regexp.Compile(p.Re)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = "custom"
		}
		r.patterns = append(r.patterns, namedRe{name: name, re: re})
	}
	return r
}

// RedactString scrubs URLs down to scheme+host+path, masks email
// addresses and hides bearer tokens and password-like key/value pairs.
// *url.Error messages embed the full request URL, so every error string
// goes through here before it is logged or shown.
func (r *Redactor) RedactString(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return s, false
	}
	orig := s

	s = urlRe.ReplaceAllStringFunc(s, RedactURL)
	s = emailRe.ReplaceAllStringFunc(s, MaskEmail)
	s = bearerRe.ReplaceAllString(s, "Bearer [redacted]")
	s = kvRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := kvRe.FindStringSubmatch(m)
		if len(sub) != 4 || !isSensitiveKeyLike(sub[1]) {
			return m
		}
		return sub[1] + sub[2] + "[redacted]"
	})

	if r != nil {
		for _, p := range r.patterns {
			s = p.re.ReplaceAllString(s, "[redacted]")
		}
	}
	return s, s != orig
}

// Error is RedactString for an error value; nil yields "".
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	s, _ := r.RedactString(err.Error())
	return s
}

func isSensitiveKeyLike(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	n := strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	switch {
	case strings.Contains(n, "apikey"):
		return true
	case strings.Contains(n, "authorization"):
		return true
	case strings.Contains(n, "token"):
		return true
	case strings.Contains(n, "secret"):
		return true
	case strings.Contains(n, "password"):
		return true
	}
	return false
}
