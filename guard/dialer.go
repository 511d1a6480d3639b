package guard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"
)

// DialContext resolves and validates the target again at connect time and
// dials only addresses that passed the check, so a second DNS answer cannot
// swap in an internal address after Check allowed the URL.
func (g *Guard) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	out := g.CheckHost(ctx, host)
	if !out.Allowed {
		g.log.Debug("guard_dial_rejected", "host", out.Host, "reason", string(out.Reason), "class", string(out.Class))
		return nil, out.Err()
	}

	var lastErr error
	for _, addr := range out.Addrs {
		if !familyMatches(network, addr) {
			continue
		}
		conn, err := g.dialer.DialContext(ctx, network, net.JoinHostPort(addr.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no %s address to dial for %s", network, host)
	}
	return nil, lastErr
}

// Transport returns an http.Transport whose every connection goes through
// DialContext. Proxies are never used: the guarded dial must reach the
// origin itself.
func (g *Guard) Transport() *http.Transport {
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           g.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func familyMatches(network string, addr netip.Addr) bool {
	switch network {
	case "tcp4", "udp4":
		return addr.Is4()
	case "tcp6", "udp6":
		return addr.Is6()
	default:
		return true
	}
}
