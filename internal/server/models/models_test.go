package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestampAdd_Saturates(t *testing.T) {
	assert.Equal(t, Timestamp(1900), Timestamp(1000).Add(900))
	assert.Equal(t, Timestamp(math.MaxUint64), Timestamp(math.MaxUint64-10).Add(900))
	assert.Equal(t, Timestamp(math.MaxUint64), Timestamp(1).Add(Duration(math.MaxUint64)))
}

func TestIdentity_RecordFailureSaturates(t *testing.T) {
	i := &Identity{FailedAttempts: math.MaxUint32 - 1}
	i.RecordFailure()
	assert.Equal(t, uint32(math.MaxUint32), i.FailedAttempts)
	i.RecordFailure()
	assert.Equal(t, uint32(math.MaxUint32), i.FailedAttempts)
}

func TestIdentity_UnlockAt(t *testing.T) {
	i := &Identity{LastLoginAt: 1000}
	assert.Equal(t, Timestamp(1900), i.UnlockAt(900))
}

func TestSession_ExpiredIsExclusiveOfExpiry(t *testing.T) {
	s := &Session{ExpiresAt: 4600}
	assert.False(t, s.Expired(4600))
	assert.True(t, s.Expired(4601))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, uint32(5), p.MaxFailedAttempts)
	assert.Equal(t, Duration(900), p.LockoutDuration)
}
