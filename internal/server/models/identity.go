// Package models contains the records persisted by the registry.
package models

import "math"

// AccountRef is the stable identifier of an account. It is supplied by the
// host (the authenticated caller) and never generated by the registry.
type AccountRef string

// Timestamp is a point in time in host-defined units. The app uses Unix
// seconds.
type Timestamp uint64

// Duration is a span of time in the same units as Timestamp.
type Duration uint64

// Add returns t+d, saturating at the maximum representable timestamp.
func (t Timestamp) Add(d Duration) Timestamp {
	if uint64(t) > math.MaxUint64-uint64(d) {
		return Timestamp(math.MaxUint64)
	}
	return t + Timestamp(d)
}

// Identity is the credential record bound to an account.
type Identity struct {
	Owner          AccountRef
	Username       string
	CredentialHash string
	SocialHash     string
	SocialProvider string
	Verified       bool
	CreatedAt      Timestamp
	LastLoginAt    Timestamp
	FailedAttempts uint32
	Locked         bool
}

// UnlockAt is the earliest time at which a locked identity heals.
func (i *Identity) UnlockAt(lockout Duration) Timestamp {
	return i.LastLoginAt.Add(lockout)
}

// RecordFailure increments the failure counter, saturating at MaxUint32.
func (i *Identity) RecordFailure() {
	if i.FailedAttempts < math.MaxUint32 {
		i.FailedAttempts++
	}
}
