package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrAccountLocked))
	assert.True(t, IsDomainError(fmt.Errorf("authenticate: %w", ErrInvalidCredentials)))
	assert.False(t, IsDomainError(nil))
	assert.False(t, IsDomainError(errors.New("db down")))
	assert.False(t, IsDomainError(ErrorNotFound))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "session expired", ErrorKind(fmt.Errorf("x: %w", ErrSessionExpired)))
	assert.Equal(t, "storage", ErrorKind(errors.New("db down")))
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "abc", ShortToken("abc"))
	assert.Equal(t, "01234567...", ShortToken("0123456789abcdef"))
}
