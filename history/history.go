// Package history keeps a local log of delivery attempts.
package history

import (
	"context"
	"time"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusBlocked Status = "blocked"
	StatusFailed  Status = "failed"
)

type Entry struct {
	EventID        string
	Action         string
	URLRedacted    string
	Host           string
	Title          string
	Status         Status
	Stage          string
	Error          string
	HTMLBytes      int
	ExtractedChars int
	CreatedAt      time.Time
	FinishedAt     time.Time
}

type Store interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, opt ListOptions) ([]Entry, error)
}

type ListOptions struct {
	// Limit defaults to 20 and is capped at 200.
	Limit  int
	Status Status
}

// NopStore records nothing.
type NopStore struct{}

func (NopStore) Record(context.Context, Entry) error                { return nil }
func (NopStore) List(context.Context, ListOptions) ([]Entry, error) { return nil, nil }
