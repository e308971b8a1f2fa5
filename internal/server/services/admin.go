package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
)

// AdminService holds the operations reserved for the admin account. The
// caller is checked before anything is read.
type AdminService struct {
	repos repomanager.RepositoryManager
	state *State
}

// NewAdminService constructs an AdminService over repos and st.
func NewAdminService(repos repomanager.RepositoryManager, st *State) *AdminService {
	return &AdminService{repos: repos, state: st}
}

func (s *AdminService) authorize(caller models.AccountRef) error {
	if caller != s.state.Admin {
		return common.ErrUnauthorized
	}
	return nil
}

// VerifyIdentity marks the identity of account as verified.
func (s *AdminService) VerifyIdentity(ctx context.Context, caller, account models.AccountRef, now models.Timestamp) ([]events.Event, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	err := s.updateIdentity(ctx, account, func(i *models.Identity) {
		i.Verified = true
	})
	if err != nil {
		return nil, err
	}
	return []events.Event{events.IdentityVerified{Account: account, VerifiedBy: caller, Timestamp: now}}, nil
}

// UnlockAccount clears the lock and the failure counter of account.
func (s *AdminService) UnlockAccount(ctx context.Context, caller, account models.AccountRef, now models.Timestamp) ([]events.Event, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	err := s.updateIdentity(ctx, account, func(i *models.Identity) {
		i.Locked = false
		i.FailedAttempts = 0
	})
	if err != nil {
		return nil, err
	}
	return []events.Event{events.AccountUnlocked{Account: account, Timestamp: now}}, nil
}

func (s *AdminService) updateIdentity(ctx context.Context, account models.AccountRef, fn func(*models.Identity)) error {
	r := s.repos.Repositories()

	identity, err := r.Identities.Get(ctx, account)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("error reading identity: %w", err)
	}

	fn(identity)
	if err := r.Identities.Insert(ctx, identity); err != nil {
		return fmt.Errorf("error storing identity: %w", err)
	}
	return nil
}

// TransferAdmin hands the admin role to next. Any value is accepted.
func (s *AdminService) TransferAdmin(ctx context.Context, caller, next models.AccountRef) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := s.repos.Repositories().State.Set(ctx, keyAdmin, []byte(next)); err != nil {
		return fmt.Errorf("error storing admin: %w", err)
	}
	s.state.Admin = next
	return nil
}

// UpdateMaxFailedAttempts sets the lockout threshold.
func (s *AdminService) UpdateMaxFailedAttempts(ctx context.Context, caller models.AccountRef, maxAttempts uint32) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := putUint(ctx, s.repos.Repositories().State, keyMaxFailedAttempts, uint64(maxAttempts)); err != nil {
		return fmt.Errorf("error storing policy: %w", err)
	}
	s.state.Policy.MaxFailedAttempts = maxAttempts
	return nil
}

// UpdateLockoutDuration sets how long a lock holds.
func (s *AdminService) UpdateLockoutDuration(ctx context.Context, caller models.AccountRef, d models.Duration) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if err := putUint(ctx, s.repos.Repositories().State, keyLockoutDuration, uint64(d)); err != nil {
		return fmt.Errorf("error storing policy: %w", err)
	}
	s.state.Policy.LockoutDuration = d
	return nil
}
