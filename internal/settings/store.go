// Package settings persists per-recipient delivery preferences: how many
// results a recipient gets and at which hours delivery occurs.
package settings

import (
	"context"
	"time"
)

// DueRecipient pairs a recipient with their current result-count preference.
type DueRecipient struct {
	ID          int64
	ResultCount int
}

// Store is the persistence contract shared by the router and the fan-out
// scheduler. Implementations must be safe for concurrent use.
type Store interface {
	// EnsureRecipient creates the recipient with default settings if absent.
	// Calling it repeatedly is a no-op; it is safe on every inbound interaction.
	EnsureRecipient(ctx context.Context, id int64) error

	ResultCount(ctx context.Context, id int64) (int, error)
	SetResultCount(ctx context.Context, id int64, n int) error

	// Schedule returns the recipient's delivery hours ascending.
	Schedule(ctx context.Context, id int64) ([]int, error)
	// ReplaceSchedule atomically replaces the whole schedule. A failure
	// partway never leaves a mix of old and new hours.
	ReplaceSchedule(ctx context.Context, id int64, hours []int) error

	// ListDue returns every recipient whose schedule contains hour.
	// Order is unspecified.
	ListDue(ctx context.Context, hour int) ([]DueRecipient, error)

	Close() error
}

// Options sets the defaults seeded for new recipients.
type Options struct {
	Path        string
	BusyTimeout time.Duration

	DefaultResultCount int   // 0 means 100
	DefaultHours       []int // empty means every hour 0..23
}

func (o Options) defaultResultCount() int {
	if o.DefaultResultCount >= 1 && o.DefaultResultCount <= 100 {
		return o.DefaultResultCount
	}
	return 100
}

func (o Options) defaultHours() []int {
	if len(o.DefaultHours) > 0 {
		return dedupeHours(o.DefaultHours)
	}
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

// dedupeHours keeps the first occurrence of each hour, preserving order.
func dedupeHours(hours []int) []int {
	var seen [24]bool
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
