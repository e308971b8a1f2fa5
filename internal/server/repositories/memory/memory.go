// Package memory is an in-process storage backend. Transactions buffer
// writes in an overlay that is merged into the store on commit and dropped
// otherwise.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
)

type tables struct {
	identities map[models.AccountRef]models.Identity
	usernames  map[string]models.AccountRef
	socials    map[string]models.AccountRef
	sessions   map[string]models.Session
	state      map[string][]byte
	audit      []models.AuditRecord
}

func newTables() *tables {
	return &tables{
		identities: make(map[models.AccountRef]models.Identity),
		usernames:  make(map[string]models.AccountRef),
		socials:    make(map[string]models.AccountRef),
		sessions:   make(map[string]models.Session),
		state:      make(map[string][]byte),
	}
}

// Store implements repomanager.RepositoryManager in memory.
type Store struct {
	mu   sync.Mutex
	base *tables
}

var _ repomanager.RepositoryManager = (*Store)(nil)

func NewStore() *Store {
	return &Store{base: newTables()}
}

// view routes reads through pending (if any) to base, and writes to pending
// when inside a transaction.
type view struct {
	store   *Store
	pending *tables
}

func (v *view) target() *tables {
	if v.pending != nil {
		return v.pending
	}
	return v.store.base
}

func get[K comparable, V any](v *view, pick func(*tables) map[K]V, key K) (V, bool) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	if v.pending != nil {
		if val, ok := pick(v.pending)[key]; ok {
			return val, true
		}
	}
	val, ok := pick(v.store.base)[key]
	return val, ok
}

func put[K comparable, V any](v *view, pick func(*tables) map[K]V, key K, val V) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	pick(v.target())[key] = val
}

func (s *Store) repositories(v *view) repomanager.Repositories {
	return repomanager.Repositories{
		Identities: &identityRepo{v: v},
		Usernames:  &indexRepo{v: v, pick: func(t *tables) map[string]models.AccountRef { return t.usernames }},
		Socials:    &indexRepo{v: v, pick: func(t *tables) map[string]models.AccountRef { return t.socials }},
		Sessions:   &sessionRepo{v: v},
		State:      &stateRepo{v: v},
		AuditLog:   &auditRepo{v: v},
	}
}

// Repositories returns repositories that write straight into the store.
func (s *Store) Repositories() repomanager.Repositories {
	return s.repositories(&view{store: s})
}

// WithTx runs fn against an overlay and merges it on success. A panic in fn
// discards the overlay and propagates.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	v := &view{store: s, pending: newTables()}
	if err := fn(ctx, s.repositories(v)); err != nil {
		return err
	}
	s.commit(v.pending)
	return nil
}

func (s *Store) commit(p *tables) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, val := range p.identities {
		s.base.identities[k] = val
	}
	for k, val := range p.usernames {
		s.base.usernames[k] = val
	}
	for k, val := range p.socials {
		s.base.socials[k] = val
	}
	for k, val := range p.sessions {
		s.base.sessions[k] = val
	}
	for k, val := range p.state {
		s.base.state[k] = val
	}
	s.base.audit = append(s.base.audit, p.audit...)
}

// RunMigrations is a no-op.
func (s *Store) RunMigrations(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

type identityRepo struct{ v *view }

func pickIdentities(t *tables) map[models.AccountRef]models.Identity { return t.identities }

func (r *identityRepo) Get(_ context.Context, account models.AccountRef) (*models.Identity, error) {
	i, ok := get(r.v, pickIdentities, account)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &i, nil
}

func (r *identityRepo) Insert(_ context.Context, i *models.Identity) error {
	put(r.v, pickIdentities, i.Owner, *i)
	return nil
}

func (r *identityRepo) Contains(_ context.Context, account models.AccountRef) (bool, error) {
	_, ok := get(r.v, pickIdentities, account)
	return ok, nil
}

type indexRepo struct {
	v    *view
	pick func(*tables) map[string]models.AccountRef
}

func (r *indexRepo) Get(_ context.Context, key string) (models.AccountRef, error) {
	a, ok := get(r.v, r.pick, key)
	if !ok {
		return "", common.ErrorNotFound
	}
	return a, nil
}

func (r *indexRepo) Insert(_ context.Context, key string, account models.AccountRef) error {
	put(r.v, r.pick, key, account)
	return nil
}

func (r *indexRepo) Contains(_ context.Context, key string) (bool, error) {
	_, ok := get(r.v, r.pick, key)
	return ok, nil
}

type sessionRepo struct{ v *view }

func pickSessions(t *tables) map[string]models.Session { return t.sessions }

func (r *sessionRepo) Get(_ context.Context, token string) (*models.Session, error) {
	s, ok := get(r.v, pickSessions, token)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *sessionRepo) Insert(_ context.Context, s *models.Session) error {
	put(r.v, pickSessions, s.Token, *s)
	return nil
}

func (r *sessionRepo) Contains(_ context.Context, token string) (bool, error) {
	_, ok := get(r.v, pickSessions, token)
	return ok, nil
}

type stateRepo struct{ v *view }

func pickState(t *tables) map[string][]byte { return t.state }

func (r *stateRepo) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := get(r.v, pickState, key)
	if !ok {
		return nil, nil
	}
	return slices.Clone(val), nil
}

func (r *stateRepo) Set(_ context.Context, key string, value []byte) error {
	put(r.v, pickState, key, slices.Clone(value))
	return nil
}

func (r *stateRepo) List(_ context.Context) (map[string][]byte, error) {
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()

	out := make(map[string][]byte, len(r.v.store.base.state))
	for k, val := range r.v.store.base.state {
		out[k] = slices.Clone(val)
	}
	if r.v.pending != nil {
		for k, val := range r.v.pending.state {
			out[k] = slices.Clone(val)
		}
	}
	return out, nil
}

type auditRepo struct{ v *view }

func (r *auditRepo) Append(_ context.Context, rec models.AuditRecord) error {
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()

	t := r.v.target()
	t.audit = append(t.audit, rec)
	return nil
}

func (r *auditRepo) Recent(_ context.Context, limit int) ([]models.AuditRecord, error) {
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()

	all := slices.Clone(r.v.store.base.audit)
	if r.v.pending != nil {
		all = append(all, r.v.pending.audit...)
	}
	slices.Reverse(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
