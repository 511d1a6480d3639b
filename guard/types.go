package guard

import (
	"errors"
	"net/netip"
	"strings"
)

// Reason explains why a URL was rejected.
type Reason string

const (
	ReasonInvalidURL         Reason = "invalid url"
	ReasonNoHostname         Reason = "no hostname"
	ReasonNonPublicLiteral   Reason = "non-public literal address"
	ReasonResolutionFailed   Reason = "resolution failed"
	ReasonNoResults          Reason = "no results"
	ReasonUnparseableAddress Reason = "unparseable resolved address"
	ReasonNonPublicResolved  Reason = "non-public resolved address"
)

// ErrRejected matches every *RejectError via errors.Is.
var ErrRejected = errors.New("outbound request rejected")

// Outcome is the result of a single check.
type Outcome struct {
	Allowed bool
	Reason  Reason

	// Host is the hostname taken from the URL.
	Host string

	// Addrs holds the validated addresses when Allowed is true.
	Addrs []netip.Addr

	// Class is the category of the offending address for the
	// non-public-literal and non-public-resolved reasons.
	Class Class

	cause error
}

// Err returns nil for an allowed outcome and a *RejectError otherwise.
func (o Outcome) Err() error {
	if o.Allowed {
		return nil
	}
	return &RejectError{Reason: o.Reason, Class: o.Class, Cause: o.cause}
}

type RejectError struct {
	Reason Reason
	Class  Class
	Cause  error
}

func (e *RejectError) Error() string {
	var b strings.Builder
	b.WriteString("url rejected: ")
	b.WriteString(string(e.Reason))
	if e.Class != "" && e.Class != ClassPublic {
		b.WriteString(" (")
		b.WriteString(string(e.Class))
		b.WriteString(")")
	}
	return b.String()
}

func (e *RejectError) Unwrap() error { return e.Cause }

func (e *RejectError) Is(target error) bool { return target == ErrRejected }

func allow(host string, addrs []netip.Addr) Outcome {
	return Outcome{Allowed: true, Host: host, Addrs: addrs}
}

func reject(reason Reason, host string) Outcome {
	return Outcome{Reason: reason, Host: host}
}
