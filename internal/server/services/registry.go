package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/logging"
	"github.com/dmitrijs2005/authentify/internal/server/auth"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
)

// Registry is the embedding boundary of the identity registry. Every
// operation runs under one lock, so at most one operation touches state at a
// time. Events returned by the services are published to the sink after the
// change they describe is stored.
type Registry struct {
	mu sync.Mutex

	repos    repomanager.RepositoryManager
	state    *State
	identity *IdentityService
	lockout  *AuthService
	sessions *SessionService
	admin    *AdminService

	sink        events.Sink
	logger      logging.Logger
	tokens      auth.TokenGenerator
	onViolation ViolationHandler
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for rejected and failed operations.
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithSink sets where committed events are published.
func WithSink(s events.Sink) Option {
	return func(r *Registry) { r.sink = s }
}

// WithViolationHandler installs a hook run before the registry panics on
// corrupt data.
func WithViolationHandler(h ViolationHandler) Option {
	return func(r *Registry) { r.onViolation = h }
}

// WithTokenGenerator sets how Login mints session tokens.
func WithTokenGenerator(g auth.TokenGenerator) Option {
	return func(r *Registry) { r.tokens = g }
}

// NewRegistry opens the registry stored in repos. An empty store is seeded
// with admin and policy; otherwise the stored admin and policy win.
func NewRegistry(ctx context.Context, repos repomanager.RepositoryManager, admin models.AccountRef, policy models.Policy, opts ...Option) (*Registry, error) {
	r := &Registry{
		repos:  repos,
		sink:   events.Discard{},
		logger: logging.NewNopLogger(),
		tokens: auth.HexTokenGenerator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")

	st, seeded, err := loadState(ctx, repos.Repositories().State, admin, policy)
	if err != nil {
		return nil, fmt.Errorf("error loading registry state: %w", err)
	}
	if seeded {
		err := repos.WithTx(ctx, func(ctx context.Context, tx repomanager.Repositories) error {
			return saveState(ctx, tx.State, *st)
		})
		if err != nil {
			return nil, fmt.Errorf("error seeding registry state: %w", err)
		}
		r.logger.Info(ctx, "registry state seeded", "admin", st.Admin)
	}

	r.state = st
	r.identity = NewIdentityService(repos, st)
	r.lockout = NewAuthService(repos, st, r.onViolation)
	r.sessions = NewSessionService(repos, st)
	r.admin = NewAdminService(repos, st)
	return r, nil
}

// finish logs a failed operation and publishes evs. Publishing errors are
// logged only.
func (r *Registry) finish(ctx context.Context, op string, now models.Timestamp, evs []events.Event, err error) {
	if err != nil {
		if common.IsDomainError(err) {
			r.logger.Warn(ctx, "operation rejected", "op", op, "kind", common.ErrorKind(err))
		} else {
			r.logger.Error(ctx, "operation failed", "op", op, "kind", common.ErrorKind(err), "error", err)
		}
	}
	if len(evs) == 0 {
		return
	}
	if perr := r.sink.Publish(ctx, events.Batch{OccurredAt: now, Events: evs}); perr != nil {
		r.logger.Error(ctx, "error publishing events", "op", op, "error", perr)
	}
}

// Register creates an identity for caller.
func (r *Registry) Register(ctx context.Context, caller models.AccountRef, username, credentialHash, socialHash, provider string, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.identity.Register(ctx, caller, username, credentialHash, socialHash, provider, now)
	r.finish(ctx, "register", now, evs, err)
	return err
}

// ChangeCredential replaces the credential hash of caller.
func (r *Registry) ChangeCredential(ctx context.Context, caller models.AccountRef, oldHash, newHash string, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.identity.ChangeCredential(ctx, caller, oldHash, newHash, now)
	r.finish(ctx, "change_credential", now, evs, err)
	return err
}

// LookupByUsername resolves a username case-insensitively.
func (r *Registry) LookupByUsername(ctx context.Context, username string) (models.AccountRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.LookupByUsername(ctx, username)
}

// LookupBySocial resolves a social hash.
func (r *Registry) LookupBySocial(ctx context.Context, socialHash string) (models.AccountRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.LookupBySocial(ctx, socialHash)
}

// Contains reports whether account has an identity.
func (r *Registry) Contains(ctx context.Context, account models.AccountRef) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.Contains(ctx, account)
}

// GetIdentity returns the stored identity of account.
func (r *Registry) GetIdentity(ctx context.Context, account models.AccountRef) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.Get(ctx, account)
}

// IsUsernameAvailable reports whether username is free in any case.
func (r *Registry) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.IsUsernameAvailable(ctx, username)
}

// IsSocialIdAvailable reports whether socialHash is unbound.
func (r *Registry) IsSocialIdAvailable(ctx context.Context, socialHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity.IsSocialIdAvailable(ctx, socialHash)
}

// Authenticate runs one login attempt at now.
func (r *Registry) Authenticate(ctx context.Context, username, credentialHash string, now models.Timestamp) (models.AccountRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, evs, err := r.lockout.Authenticate(ctx, username, credentialHash, now)
	r.finish(ctx, "authenticate", now, evs, err)
	return account, err
}

// VerifyCredential compares credentialHash without recording an attempt.
func (r *Registry) VerifyCredential(ctx context.Context, account models.AccountRef, credentialHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockout.VerifyCredential(ctx, account, credentialHash)
}

// CreateSession stores an active session for account.
func (r *Registry) CreateSession(ctx context.Context, account models.AccountRef, token string, duration models.Duration, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.sessions.Create(ctx, account, token, duration, now)
	r.finish(ctx, "create_session", now, evs, err)
	return err
}

// ValidateSession returns the owner of an active, unexpired session.
func (r *Registry) ValidateSession(ctx context.Context, token string, now models.Timestamp) (models.AccountRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, err := r.sessions.Validate(ctx, token, now)
	if err != nil && !common.IsDomainError(err) {
		r.finish(ctx, "validate_session", now, nil, err)
	}
	return account, err
}

// RevokeSession deactivates a session once.
func (r *Registry) RevokeSession(ctx context.Context, token string, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.sessions.Revoke(ctx, token, now)
	r.finish(ctx, "revoke_session", now, evs, err)
	return err
}

// Login authenticates and, on success, opens a session with a token from the
// configured generator. If the session cannot be stored the successful
// attempt stays recorded.
func (r *Registry) Login(ctx context.Context, username, credentialHash string, duration models.Duration, now models.Timestamp) (models.AccountRef, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, evs, err := r.lockout.Authenticate(ctx, username, credentialHash, now)
	if err != nil {
		r.finish(ctx, "login", now, evs, err)
		return "", "", err
	}

	token, err := r.tokens.Generate(account, now.Add(duration))
	if err != nil {
		err = fmt.Errorf("error generating token: %w", err)
		r.finish(ctx, "login", now, evs, err)
		return "", "", err
	}

	sevs, err := r.sessions.Create(ctx, account, token, duration, now)
	evs = append(evs, sevs...)
	r.finish(ctx, "login", now, evs, err)
	if err != nil {
		return "", "", err
	}
	return account, token, nil
}

// VerifyIdentity marks account verified. Admin only.
func (r *Registry) VerifyIdentity(ctx context.Context, caller, account models.AccountRef, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.admin.VerifyIdentity(ctx, caller, account, now)
	r.finish(ctx, "verify_identity", now, evs, err)
	return err
}

// UnlockAccount clears the lock of account. Admin only.
func (r *Registry) UnlockAccount(ctx context.Context, caller, account models.AccountRef, now models.Timestamp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs, err := r.admin.UnlockAccount(ctx, caller, account, now)
	r.finish(ctx, "unlock_account", now, evs, err)
	return err
}

// TransferAdmin hands the admin role to next. Admin only.
func (r *Registry) TransferAdmin(ctx context.Context, caller, next models.AccountRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.admin.TransferAdmin(ctx, caller, next)
	r.finish(ctx, "transfer_admin", 0, nil, err)
	return err
}

// UpdateMaxFailedAttempts sets the lockout threshold. Admin only.
func (r *Registry) UpdateMaxFailedAttempts(ctx context.Context, caller models.AccountRef, maxAttempts uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.admin.UpdateMaxFailedAttempts(ctx, caller, maxAttempts)
	r.finish(ctx, "update_max_failed_attempts", 0, nil, err)
	return err
}

// UpdateLockoutDuration sets the lock window. Admin only.
func (r *Registry) UpdateLockoutDuration(ctx context.Context, caller models.AccountRef, d models.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.admin.UpdateLockoutDuration(ctx, caller, d)
	r.finish(ctx, "update_lockout_duration", 0, nil, err)
	return err
}

// TotalUsers is the number of registered identities.
func (r *Registry) TotalUsers() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.TotalUsers
}

// ActiveSessions is the number of sessions created and not revoked.
func (r *Registry) ActiveSessions() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ActiveSessions
}

// Admin is the current admin account.
func (r *Registry) Admin() models.AccountRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Admin
}

// MaxFailedAttempts is the current lockout threshold.
func (r *Registry) MaxFailedAttempts() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Policy.MaxFailedAttempts
}

// LockoutDuration is the current lock window.
func (r *Registry) LockoutDuration() models.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Policy.LockoutDuration
}

// Policy returns both lockout settings.
func (r *Registry) Policy() models.Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Policy
}
