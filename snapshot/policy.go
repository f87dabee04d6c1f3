package snapshot

import (
	"time"

	"golang.org/x/time/rate"
)

// Policy advises whether an explicit checkpoint should actually write
// a snapshot. It is purely advisory: the caller still invokes Create
// itself, and nothing flushes in the background.
//
// Choose among the policies in this package based on how often the
// set changes and how expensive a full snapshot is.
type Policy interface {
	// ShouldCreate reports whether a snapshot is due, given the
	// number of mutations since the last one.
	ShouldCreate(pendingChanges int) bool

	// Created tells the policy a snapshot was just written.
	Created()
}

// NeverPolicy never advises a snapshot.
type NeverPolicy struct{}

func (NeverPolicy) ShouldCreate(pendingChanges int) bool { return false }

func (NeverPolicy) Created() {}

// AlwaysPolicy advises a snapshot on every query.
type AlwaysPolicy struct{}

func (AlwaysPolicy) ShouldCreate(pendingChanges int) bool { return true }

func (AlwaysPolicy) Created() {}

// EveryNChangesPolicy advises a snapshot once at least N mutations
// have accumulated since the last one.
type EveryNChangesPolicy int

func (n EveryNChangesPolicy) ShouldCreate(pendingChanges int) bool {
	return pendingChanges >= int(n)
}

func (EveryNChangesPolicy) Created() {}

// MinIntervalPolicy advises at most one snapshot per interval,
// regardless of how many changes accumulated.
type MinIntervalPolicy struct {
	limiter *rate.Limiter
}

// NewMinIntervalPolicy creates a policy allowing one snapshot per
// interval. The first query is always allowed.
func NewMinIntervalPolicy(interval time.Duration) *MinIntervalPolicy {
	return &MinIntervalPolicy{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *MinIntervalPolicy) ShouldCreate(pendingChanges int) bool {
	if pendingChanges == 0 {
		return false
	}
	return p.limiter.Tokens() >= 1
}

// Created consumes the interval budget.
func (p *MinIntervalPolicy) Created() {
	p.limiter.Allow()
}
