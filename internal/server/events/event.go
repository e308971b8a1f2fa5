// Package events defines the notifications emitted by registry operations
// and the sinks that receive them.
package events

import (
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Event kinds.
const (
	KindIdentityRegistered = "IdentityRegistered"
	KindIdentityVerified   = "IdentityVerified"
	KindLoginSuccessful    = "LoginSuccessful"
	KindLoginFailed        = "LoginFailed"
	KindAccountLocked      = "AccountLocked"
	KindAccountUnlocked    = "AccountUnlocked"
	KindSessionCreated     = "SessionCreated"
	KindSessionRevoked     = "SessionRevoked"
	KindPasswordChanged    = "PasswordChanged"
)

// Login failure reasons.
const (
	ReasonAccountLocked   = "Account locked"
	ReasonInvalidPassword = "Invalid password"
	ReasonTooManyAttempts = "Too many failed login attempts"
)

// Event is anything a registry operation reports.
type Event interface {
	Kind() string
}

type IdentityRegistered struct {
	Account   models.AccountRef `json:"account"`
	Username  string            `json:"username"`
	Provider  string            `json:"provider"`
	Timestamp models.Timestamp  `json:"timestamp"`
}

func (IdentityRegistered) Kind() string { return KindIdentityRegistered }

type IdentityVerified struct {
	Account    models.AccountRef `json:"account"`
	VerifiedBy models.AccountRef `json:"verified_by"`
	Timestamp  models.Timestamp  `json:"timestamp"`
}

func (IdentityVerified) Kind() string { return KindIdentityVerified }

type LoginSuccessful struct {
	Account   models.AccountRef `json:"account"`
	Username  string            `json:"username"`
	Timestamp models.Timestamp  `json:"timestamp"`
}

func (LoginSuccessful) Kind() string { return KindLoginSuccessful }

// LoginFailed carries the username as submitted, which may not resolve to
// any account.
type LoginFailed struct {
	Username  string           `json:"username"`
	Reason    string           `json:"reason"`
	Timestamp models.Timestamp `json:"timestamp"`
}

func (LoginFailed) Kind() string { return KindLoginFailed }

type AccountLocked struct {
	Account   models.AccountRef `json:"account"`
	Username  string            `json:"username"`
	Reason    string            `json:"reason"`
	Timestamp models.Timestamp  `json:"timestamp"`
}

func (AccountLocked) Kind() string { return KindAccountLocked }

type AccountUnlocked struct {
	Account   models.AccountRef `json:"account"`
	Timestamp models.Timestamp  `json:"timestamp"`
}

func (AccountUnlocked) Kind() string { return KindAccountUnlocked }

type SessionCreated struct {
	Account   models.AccountRef `json:"account"`
	Token     string            `json:"token"`
	ExpiresAt models.Timestamp  `json:"expires_at"`
}

func (SessionCreated) Kind() string { return KindSessionCreated }

type SessionRevoked struct {
	Token     string           `json:"token"`
	Timestamp models.Timestamp `json:"timestamp"`
}

func (SessionRevoked) Kind() string { return KindSessionRevoked }

type PasswordChanged struct {
	Account   models.AccountRef `json:"account"`
	Timestamp models.Timestamp  `json:"timestamp"`
}

func (PasswordChanged) Kind() string { return KindPasswordChanged }
