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

// SessionService manages session records and the active-session counter.
// Tokens are opaque; callers mint them.
type SessionService struct {
	repos repomanager.RepositoryManager
	state *State
}

// NewSessionService constructs a SessionService over repos and st.
func NewSessionService(repos repomanager.RepositoryManager, st *State) *SessionService {
	return &SessionService{repos: repos, state: st}
}

// Create stores an active session for account expiring at now+duration.
// Re-creating an active token replaces its owner and expiry without
// counting it twice. A revoked token stays revoked.
func (s *SessionService) Create(ctx context.Context, account models.AccountRef, token string, duration models.Duration, now models.Timestamp) ([]events.Event, error) {
	session := &models.Session{
		Token:     token,
		Owner:     account,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		Active:    true,
	}
	active := s.state.ActiveSessions

	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		existing, err := s.get(ctx, r, token)
		switch {
		case errors.Is(err, common.ErrSessionNotFound):
			active = incSat(active)
		case err != nil:
			return err
		case !existing.Active:
			return common.ErrSessionAlreadyRevoked
		}

		if err := r.Sessions.Insert(ctx, session); err != nil {
			return fmt.Errorf("error storing session: %w", err)
		}
		if err := putUint(ctx, r.State, keyActiveSessions, active); err != nil {
			return fmt.Errorf("error storing session count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.state.ActiveSessions = active
	return []events.Event{events.SessionCreated{
		Account:   account,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}}, nil
}

// Validate returns the owner of an active, unexpired session. A revoked
// session reports revocation even when it has also expired.
func (s *SessionService) Validate(ctx context.Context, token string, now models.Timestamp) (models.AccountRef, error) {
	session, err := s.get(ctx, s.repos.Repositories(), token)
	if err != nil {
		return "", err
	}
	if !session.Active {
		return "", common.ErrSessionAlreadyRevoked
	}
	if session.Expired(now) {
		return "", common.ErrSessionExpired
	}
	return session.Owner, nil
}

// Revoke deactivates a session. Revoking twice fails.
func (s *SessionService) Revoke(ctx context.Context, token string, now models.Timestamp) ([]events.Event, error) {
	active := decSat(s.state.ActiveSessions)

	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		session, err := s.get(ctx, r, token)
		if err != nil {
			return err
		}
		if !session.Active {
			return common.ErrSessionAlreadyRevoked
		}

		session.Active = false
		if err := r.Sessions.Insert(ctx, session); err != nil {
			return fmt.Errorf("error storing session: %w", err)
		}
		if err := putUint(ctx, r.State, keyActiveSessions, active); err != nil {
			return fmt.Errorf("error storing session count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.state.ActiveSessions = active
	return []events.Event{events.SessionRevoked{Token: token, Timestamp: now}}, nil
}

func (s *SessionService) get(ctx context.Context, r repomanager.Repositories, token string) (*models.Session, error) {
	session, err := r.Sessions.Get(ctx, token)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading session: %w", err)
	}
	return session, nil
}
