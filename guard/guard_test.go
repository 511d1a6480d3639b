package guard

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func fakeResolver(answers map[string][]string) LookupFunc {
	return func(ctx context.Context, host string) ([]string, error) {
		addrs, ok := answers[host]
		if !ok {
			return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
		}
		return addrs, nil
	}
}

func newTestGuard(answers map[string][]string) *Guard {
	g := New(Config{DNSTimeout: time.Second}, nil)
	g.SetResolver(fakeResolver(answers))
	return g
}

func TestCheck_LiteralAddresses(t *testing.T) {
	g := newTestGuard(nil)
	cases := []struct {
		url  string
		want bool
	}{
		{"http://8.8.8.8/", true},
		{"https://1.1.1.1/dns-query", true},
		{"http://93.184.216.34:8080/x", true},
		{"http://[2606:4700:4700::1111]/", true},
		{"http://127.0.0.1/", false},
		{"http://127.1.2.3/", false},
		{"http://[::1]/", false},
		{"http://10.0.0.1/", false},
		{"http://172.16.0.1/", false},
		{"http://192.168.1.1/", false},
		{"http://169.254.1.1/", false},
		{"http://169.254.169.254/latest/meta-data/", false},
		{"http://0.0.0.0/", false},
		{"http://[::]/", false},
		{"http://224.0.0.1/", false},
		{"http://[ff02::1]/", false},
		{"http://100.64.0.1/", false},
		{"http://192.0.2.10/", false},
		{"http://198.18.0.1/", false},
		{"http://240.0.0.1/", false},
		{"http://255.255.255.255/", false},
		{"http://[fc00::1]/", false},
		{"http://[fe80::1%25en0]/", false},
		{"http://[2001:db8::1]/", false},
		{"http://[::ffff:127.0.0.1]/", false},
		{"http://[::ffff:10.1.2.3]/", false},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			out := g.Check(context.Background(), tc.url)
			if out.Allowed != tc.want {
				t.Fatalf("Check(%q).Allowed = %v, want %v (reason=%q class=%q)", tc.url, out.Allowed, tc.want, out.Reason, out.Class)
			}
			if !tc.want && out.Reason != ReasonNonPublicLiteral {
				t.Fatalf("Check(%q).Reason = %q, want %q", tc.url, out.Reason, ReasonNonPublicLiteral)
			}
		})
	}
}

func TestCheck_LiteralSkipsDNS(t *testing.T) {
	g := New(Config{}, nil)
	called := false
	g.SetResolver(LookupFunc(func(ctx context.Context, host string) ([]string, error) {
		called = true
		return nil, errors.New("unexpected lookup")
	}))
	out := g.Check(context.Background(), "http://8.8.8.8/")
	if !out.Allowed {
		t.Fatalf("expected allow, got reason %q", out.Reason)
	}
	if called {
		t.Fatal("resolver must not be called for literal addresses")
	}
	if len(out.Addrs) != 1 || out.Addrs[0].String() != "8.8.8.8" {
		t.Fatalf("unexpected addrs: %v", out.Addrs)
	}
}

func TestCheck_LoopbackLiteralReason(t *testing.T) {
	out := newTestGuard(nil).Check(context.Background(), "http://127.0.0.1/")
	if out.Allowed {
		t.Fatal("expected reject")
	}
	if out.Reason != ReasonNonPublicLiteral {
		t.Fatalf("reason = %q, want %q", out.Reason, ReasonNonPublicLiteral)
	}
	if out.Class != ClassLoopback {
		t.Fatalf("class = %q, want %q", out.Class, ClassLoopback)
	}
}

func TestCheck_DNSNames(t *testing.T) {
	g := newTestGuard(map[string][]string{
		"example.com":       {"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"},
		"localhost":         {"127.0.0.1"},
		"mixed.example.com": {"93.184.216.34", "10.0.0.5"},
		"v6local.example":   {"2606:4700::1", "fd12:3456::1"},
		"empty.example.com": {},
		"garbage.example":   {"93.184.216.34", "not-an-ip"},
		"mapped.example":    {"::ffff:192.168.0.1"},
		"meta.example":      {"169.254.169.254"},
	})

	cases := []struct {
		name   string
		url    string
		allow  bool
		reason Reason
	}{
		{"public_only", "http://example.com/", true, ""},
		{"public_with_port_and_query", "https://example.com:8443/a?token=x#frag", true, ""},
		{"localhost", "http://localhost/", false, ReasonNonPublicResolved},
		{"mixed_public_private", "http://mixed.example.com/", false, ReasonNonPublicResolved},
		{"mixed_v6", "http://v6local.example/", false, ReasonNonPublicResolved},
		{"mapped_private", "http://mapped.example/", false, ReasonNonPublicResolved},
		{"metadata", "http://meta.example/latest", false, ReasonNonPublicResolved},
		{"nxdomain", "http://does-not-exist.invalid/", false, ReasonResolutionFailed},
		{"empty_answer", "http://empty.example.com/", false, ReasonNoResults},
		{"unparseable_answer", "http://garbage.example/", false, ReasonUnparseableAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Check(context.Background(), tc.url)
			if out.Allowed != tc.allow {
				t.Fatalf("Allowed = %v, want %v (reason=%q)", out.Allowed, tc.allow, out.Reason)
			}
			if out.Reason != tc.reason {
				t.Fatalf("Reason = %q, want %q", out.Reason, tc.reason)
			}
		})
	}
}

func TestCheck_AllowedKeepsEveryAddress(t *testing.T) {
	g := newTestGuard(map[string][]string{
		"example.com": {"93.184.216.34", "93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"},
	})
	out := g.Check(context.Background(), "http://example.com/")
	if !out.Allowed {
		t.Fatalf("expected allow, got %q", out.Reason)
	}
	if len(out.Addrs) != 2 {
		t.Fatalf("expected 2 deduplicated addrs, got %v", out.Addrs)
	}
	if out.Host != "example.com" {
		t.Fatalf("host = %q", out.Host)
	}
}

func TestCheck_NoHostnameAndInvalid(t *testing.T) {
	g := newTestGuard(nil)
	cases := []struct {
		url    string
		reason Reason
	}{
		{"", ReasonNoHostname},
		{"http:///path-only", ReasonNoHostname},
		{"mailto:someone@example.com", ReasonNoHostname},
		{"://example.com", ReasonInvalidURL},
		{"http://[::1", ReasonInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			out := g.Check(context.Background(), tc.url)
			if out.Allowed {
				t.Fatal("expected reject")
			}
			if out.Reason != tc.reason {
				t.Fatalf("Reason = %q, want %q", out.Reason, tc.reason)
			}
		})
	}
}

func TestCheck_DNSTimeoutFailsClosed(t *testing.T) {
	g := New(Config{DNSTimeout: 20 * time.Millisecond}, nil)
	g.SetResolver(LookupFunc(func(ctx context.Context, host string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	out := g.Check(context.Background(), "http://slow.example/")
	if out.Allowed {
		t.Fatal("expected reject on resolver timeout")
	}
	if out.Reason != ReasonResolutionFailed {
		t.Fatalf("Reason = %q, want %q", out.Reason, ReasonResolutionFailed)
	}
	if !errors.Is(out.Err(), context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", out.Err())
	}
}

func TestOutcomeErr(t *testing.T) {
	g := newTestGuard(map[string][]string{"localhost": {"127.0.0.1"}})

	if err := g.Check(context.Background(), "http://8.8.8.8/").Err(); err != nil {
		t.Fatalf("expected nil error for allowed outcome, got %v", err)
	}

	err := g.Check(context.Background(), "http://localhost/").Err()
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var rej *RejectError
	if !errors.As(err, &rej) {
		t.Fatalf("expected *RejectError, got %T", err)
	}
	if rej.Reason != ReasonNonPublicResolved || rej.Class != ClassLoopback {
		t.Fatalf("unexpected reject error: %+v", rej)
	}
	if !strings.Contains(err.Error(), "non-public resolved address") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if strings.Contains(err.Error(), "localhost") {
		t.Fatalf("error message should not carry the url: %q", err.Error())
	}
}
