// Package common defines sentinel errors and small helpers shared by every
// Authentify layer. Callers should use errors.Is to match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Token errors returned by the session token helpers.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Registry errors. Every failure of a registry operation is one of these,
// except storage failures which are wrapped and passed through.
var (
	ErrIdentityAlreadyExists = errors.New("identity already exists")
	ErrUsernameAlreadyTaken  = errors.New("username already taken")
	ErrSocialIdAlreadyBound  = errors.New("social id already bound")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthorized          = errors.New("unauthorized")

	ErrEmptyUsername         = errors.New("empty username")
	ErrEmptyCredentialHash   = errors.New("empty credential hash")
	ErrEmptySocialHash       = errors.New("empty social hash")
	ErrUsernameTooShort      = errors.New("username too short")
	ErrUsernameTooLong       = errors.New("username too long")
	ErrInvalidUsernameFormat = errors.New("invalid username format")

	ErrAccountLocked = errors.New("account locked")

	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionExpired        = errors.New("session expired")
	ErrSessionAlreadyRevoked = errors.New("session already revoked")
)

var domainErrors = []error{
	ErrIdentityAlreadyExists,
	ErrUsernameAlreadyTaken,
	ErrSocialIdAlreadyBound,
	ErrIdentityNotFound,
	ErrInvalidCredentials,
	ErrUnauthorized,
	ErrEmptyUsername,
	ErrEmptyCredentialHash,
	ErrEmptySocialHash,
	ErrUsernameTooShort,
	ErrUsernameTooLong,
	ErrInvalidUsernameFormat,
	ErrAccountLocked,
	ErrSessionNotFound,
	ErrSessionExpired,
	ErrSessionAlreadyRevoked,
}

// IsDomainError reports whether err is (or wraps) one of the registry errors.
// Storage failures return false.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	for _, e := range domainErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// ErrorKind returns the text of the registry error wrapped by err, or
// "storage" for anything outside the closed set. It is used as a log field.
func ErrorKind(err error) string {
	for _, e := range domainErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "storage"
}
