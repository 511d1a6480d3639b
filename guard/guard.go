package guard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

const (
	defaultDNSTimeout  = 5 * time.Second
	defaultDialTimeout = 30 * time.Second
)

// Resolver is the name-to-address lookup the guard depends on.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// LookupFunc adapts a plain function to Resolver.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

func (f LookupFunc) LookupHost(ctx context.Context, host string) ([]string, error) {
	return f(ctx, host)
}

// Guard decides whether an outbound fetch may be issued against a URL.
// It keeps no state between checks and never caches DNS answers.
type Guard struct {
	resolver   Resolver
	dnsTimeout time.Duration
	dialer     *net.Dialer
	log        *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	dnsTimeout := cfg.DNSTimeout
	if dnsTimeout <= 0 {
		dnsTimeout = defaultDNSTimeout
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Guard{
		resolver:   net.DefaultResolver,
		dnsTimeout: dnsTimeout,
		dialer: &net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		},
		log: log,
	}
}

// SetResolver replaces the system resolver. Call it before the guard is
// shared between goroutines.
func (g *Guard) SetResolver(r Resolver) {
	if r == nil {
		r = net.DefaultResolver
	}
	g.resolver = r
}

// Check decides whether rawURL may be fetched. Scheme allow-listing is the
// caller's job. The raw URL is never logged.
func (g *Guard) Check(ctx context.Context, rawURL string) Outcome {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		out := reject(ReasonInvalidURL, "")
		out.cause = err
		return out
	}
	host := u.Hostname()
	if host == "" {
		return reject(ReasonNoHostname, "")
	}
	return g.CheckHost(ctx, host)
}

// CheckHost applies the address policy to a bare hostname or IP literal.
func (g *Guard) CheckHost(ctx context.Context, host string) Outcome {
	host = strings.TrimSpace(host)
	if host == "" {
		return reject(ReasonNoHostname, "")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if cls := Classify(addr); cls != ClassPublic {
			out := reject(ReasonNonPublicLiteral, host)
			out.Class = cls
			return out
		}
		return allow(host, []netip.Addr{addr.WithZone("").Unmap()})
	}

	return g.checkResolved(ctx, host)
}

// checkResolved rejects the host if any single answer is non-public, even
// when other answers are public.
func (g *Guard) checkResolved(ctx context.Context, host string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	lookupCtx, cancel := context.WithTimeout(ctx, g.dnsTimeout)
	defer cancel()

	answers, err := g.resolver.LookupHost(lookupCtx, host)
	if err != nil {
		out := reject(ReasonResolutionFailed, host)
		out.cause = fmt.Errorf("lookup %s: %w", host, err)
		return out
	}
	if len(answers) == 0 {
		return reject(ReasonNoResults, host)
	}

	addrs := make([]netip.Addr, 0, len(answers))
	seen := make(map[netip.Addr]bool, len(answers))
	for _, a := range answers {
		addr, err := netip.ParseAddr(strings.TrimSpace(a))
		if err != nil {
			out := reject(ReasonUnparseableAddress, host)
			out.cause = err
			return out
		}
		if cls := Classify(addr); cls != ClassPublic {
			out := reject(ReasonNonPublicResolved, host)
			out.Class = cls
			return out
		}
		addr = addr.WithZone("").Unmap()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		addrs = append(addrs, addr)
	}
	return allow(host, addrs)
}
