// Package services implements the identity registry: registration and
// lookups, the login lockout engine, session lifecycle and the admin gate.
// Services are not safe for concurrent use; Registry serializes them.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authentify/internal/validation"
)

// IdentityService owns identity records and the username and social
// indexes.
type IdentityService struct {
	repos repomanager.RepositoryManager
	state *State
}

// NewIdentityService constructs an IdentityService over repos and st.
func NewIdentityService(repos repomanager.RepositoryManager, st *State) *IdentityService {
	return &IdentityService{repos: repos, state: st}
}

// Register binds caller to a new identity. Input is validated before any
// read. The record, both index entries and the user counter are written in
// one transaction.
func (s *IdentityService) Register(ctx context.Context, caller models.AccountRef, username, credentialHash, socialHash, provider string, now models.Timestamp) ([]events.Event, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateCredentialHash(credentialHash); err != nil {
		return nil, err
	}
	if err := validation.ValidateSocialHash(socialHash); err != nil {
		return nil, err
	}

	key := validation.NormalizeUsername(username)
	next := *s.state
	next.TotalUsers = incSat(next.TotalUsers)

	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		exists, err := r.Identities.Contains(ctx, caller)
		if err != nil {
			return fmt.Errorf("error checking identity: %w", err)
		}
		if exists {
			return common.ErrIdentityAlreadyExists
		}

		taken, err := r.Usernames.Contains(ctx, key)
		if err != nil {
			return fmt.Errorf("error checking username: %w", err)
		}
		if taken {
			return common.ErrUsernameAlreadyTaken
		}

		bound, err := r.Socials.Contains(ctx, socialHash)
		if err != nil {
			return fmt.Errorf("error checking social id: %w", err)
		}
		if bound {
			return common.ErrSocialIdAlreadyBound
		}

		identity := &models.Identity{
			Owner:          caller,
			Username:       username,
			CredentialHash: credentialHash,
			SocialHash:     socialHash,
			SocialProvider: provider,
			CreatedAt:      now,
		}
		if err := r.Identities.Insert(ctx, identity); err != nil {
			return fmt.Errorf("error storing identity: %w", err)
		}
		if err := r.Usernames.Insert(ctx, key, caller); err != nil {
			return fmt.Errorf("error storing username index: %w", err)
		}
		if err := r.Socials.Insert(ctx, socialHash, caller); err != nil {
			return fmt.Errorf("error storing social index: %w", err)
		}
		if err := putUint(ctx, r.State, keyTotalUsers, next.TotalUsers); err != nil {
			return fmt.Errorf("error storing user count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	*s.state = next
	return []events.Event{events.IdentityRegistered{
		Account:   caller,
		Username:  username,
		Provider:  provider,
		Timestamp: now,
	}}, nil
}

// ChangeCredential replaces the caller's credential hash after checking the
// old one. It neither counts failures nor looks at the lock.
func (s *IdentityService) ChangeCredential(ctx context.Context, caller models.AccountRef, oldHash, newHash string, now models.Timestamp) ([]events.Event, error) {
	r := s.repos.Repositories()

	identity, err := s.get(ctx, r, caller)
	if err != nil {
		return nil, err
	}
	if !hashesEqual(identity.CredentialHash, oldHash) {
		return nil, common.ErrInvalidCredentials
	}
	if err := validation.ValidateCredentialHash(newHash); err != nil {
		return nil, err
	}

	identity.CredentialHash = newHash
	if err := r.Identities.Insert(ctx, identity); err != nil {
		return nil, fmt.Errorf("error storing identity: %w", err)
	}

	return []events.Event{events.PasswordChanged{Account: caller, Timestamp: now}}, nil
}

// LookupByUsername resolves a username case-insensitively.
func (s *IdentityService) LookupByUsername(ctx context.Context, username string) (models.AccountRef, error) {
	return s.resolve(ctx, s.repos.Repositories().Usernames.Get, validation.NormalizeUsername(username))
}

// LookupBySocial resolves a social hash.
func (s *IdentityService) LookupBySocial(ctx context.Context, socialHash string) (models.AccountRef, error) {
	return s.resolve(ctx, s.repos.Repositories().Socials.Get, socialHash)
}

func (s *IdentityService) resolve(ctx context.Context, get func(context.Context, string) (models.AccountRef, error), key string) (models.AccountRef, error) {
	account, err := get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.ErrIdentityNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error reading index: %w", err)
	}
	return account, nil
}

// Contains reports whether account has an identity.
func (s *IdentityService) Contains(ctx context.Context, account models.AccountRef) (bool, error) {
	ok, err := s.repos.Repositories().Identities.Contains(ctx, account)
	if err != nil {
		return false, fmt.Errorf("error checking identity: %w", err)
	}
	return ok, nil
}

// Get returns the identity of account or common.ErrIdentityNotFound.
func (s *IdentityService) Get(ctx context.Context, account models.AccountRef) (*models.Identity, error) {
	return s.get(ctx, s.repos.Repositories(), account)
}

func (s *IdentityService) get(ctx context.Context, r repomanager.Repositories, account models.AccountRef) (*models.Identity, error) {
	identity, err := r.Identities.Get(ctx, account)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading identity: %w", err)
	}
	return identity, nil
}

// IsUsernameAvailable reports whether username (case-insensitively) is free.
func (s *IdentityService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.repos.Repositories().Usernames.Contains(ctx, validation.NormalizeUsername(username))
	if err != nil {
		return false, fmt.Errorf("error checking username: %w", err)
	}
	return !taken, nil
}

// IsSocialIdAvailable reports whether socialHash is unbound.
func (s *IdentityService) IsSocialIdAvailable(ctx context.Context, socialHash string) (bool, error) {
	bound, err := s.repos.Repositories().Socials.Contains(ctx, socialHash)
	if err != nil {
		return false, fmt.Errorf("error checking social id: %w", err)
	}
	return !bound, nil
}

// hashesEqual is an exact byte comparison in constant time.
func hashesEqual(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
