package guard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

type EventKind string

const (
	EventGuardCheck EventKind = "guard_check"
	EventDelivery   EventKind = "delivery"
)

// AuditEvent is one line of the audit trail. URLs are stored redacted.
type AuditEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"ts"`
	Kind      EventKind `json:"kind"`
	Action    string    `json:"action,omitempty"`

	URLRedacted string `json:"url_redacted,omitempty"`
	Host        string `json:"host,omitempty"`

	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	Class    string `json:"class,omitempty"`

	Title string `json:"title,omitempty"`
	Bytes int    `json:"bytes,omitempty"`
	Error string `json:"error,omitempty"`
}

type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent) error
	Close() error
}

// NopAuditSink drops every event.
type NopAuditSink struct{}

func (NopAuditSink) Emit(context.Context, AuditEvent) error { return nil }
func (NopAuditSink) Close() error                           { return nil }

// CheckEvent builds the audit record for a guard decision.
func CheckEvent(action, rawURL string, out Outcome) AuditEvent {
	e := AuditEvent{
		Kind:        EventGuardCheck,
		Action:      action,
		URLRedacted: RedactURL(rawURL),
		Host:        out.Host,
		Decision:    "allow",
	}
	if !out.Allowed {
		e.Decision = "reject"
		e.Reason = string(out.Reason)
		e.Class = string(out.Class)
	}
	return e
}

func stampEvent(e AuditEvent) AuditEvent {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.EventID == "" {
		e.EventID = "evt_" + randHex(8)
	}
	return e
}

func randHex(nbytes int) string {
	if nbytes <= 0 {
		nbytes = 8
	}
	b := make([]byte, nbytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
