package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authentify/internal/validation"
)

// ViolationHandler is called when stored data breaks an invariant that the
// atomic register write guarantees. It must not return normally; if it does,
// the caller panics.
type ViolationHandler func(msg string)

func panicViolation(msg string) { panic(msg) }

// AuthService is the login lockout engine.
type AuthService struct {
	repos     repomanager.RepositoryManager
	state     *State
	violation ViolationHandler
}

// NewAuthService constructs an AuthService. A nil onViolation panics with
// the message alone.
func NewAuthService(repos repomanager.RepositoryManager, st *State, onViolation ViolationHandler) *AuthService {
	if onViolation == nil {
		onViolation = panicViolation
	}
	return &AuthService{repos: repos, state: st, violation: onViolation}
}

func (s *AuthService) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.violation(msg)
	panic(msg)
}

// Authenticate checks a login attempt at time now.
//
// A locked identity whose lockout window has passed is unlocked and checked
// in the same call. A mismatch is counted and persisted even though the call
// fails, so failed attempts return their events together with the error.
func (s *AuthService) Authenticate(ctx context.Context, username, credentialHash string, now models.Timestamp) (models.AccountRef, []events.Event, error) {
	r := s.repos.Repositories()

	account, err := r.Usernames.Get(ctx, validation.NormalizeUsername(username))
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil, common.ErrIdentityNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("error reading username index: %w", err)
	}

	identity, err := r.Identities.Get(ctx, account)
	if errors.Is(err, common.ErrorNotFound) {
		s.violate("username index points at missing identity %q", account)
	}
	if err != nil {
		return "", nil, fmt.Errorf("error reading identity: %w", err)
	}

	policy := s.state.Policy

	if identity.Locked {
		if now < identity.UnlockAt(policy.LockoutDuration) {
			return "", []events.Event{events.LoginFailed{
				Username:  username,
				Reason:    events.ReasonAccountLocked,
				Timestamp: now,
			}}, common.ErrAccountLocked
		}
		identity.Locked = false
		identity.FailedAttempts = 0
	}

	if !hashesEqual(identity.CredentialHash, credentialHash) {
		var evs []events.Event

		identity.RecordFailure()
		identity.LastLoginAt = now
		if identity.FailedAttempts >= policy.MaxFailedAttempts {
			identity.Locked = true
			evs = append(evs, events.AccountLocked{
				Account:   account,
				Username:  username,
				Reason:    events.ReasonTooManyAttempts,
				Timestamp: now,
			})
		}

		if err := r.Identities.Insert(ctx, identity); err != nil {
			return "", nil, fmt.Errorf("error storing identity: %w", err)
		}

		evs = append(evs, events.LoginFailed{
			Username:  username,
			Reason:    events.ReasonInvalidPassword,
			Timestamp: now,
		})
		return "", evs, common.ErrInvalidCredentials
	}

	identity.FailedAttempts = 0
	identity.LastLoginAt = now
	if err := r.Identities.Insert(ctx, identity); err != nil {
		return "", nil, fmt.Errorf("error storing identity: %w", err)
	}

	return account, []events.Event{events.LoginSuccessful{
		Account:   account,
		Username:  username,
		Timestamp: now,
	}}, nil
}

// VerifyCredential compares credentialHash with the stored one without
// touching counters. The stored lock flag is honored as is.
func (s *AuthService) VerifyCredential(ctx context.Context, account models.AccountRef, credentialHash string) (bool, error) {
	identity, err := s.repos.Repositories().Identities.Get(ctx, account)
	if errors.Is(err, common.ErrorNotFound) {
		return false, common.ErrIdentityNotFound
	}
	if err != nil {
		return false, fmt.Errorf("error reading identity: %w", err)
	}
	if identity.Locked {
		return false, common.ErrAccountLocked
	}
	return hashesEqual(identity.CredentialHash, credentialHash), nil
}
