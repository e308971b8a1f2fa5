package repomanager

import (
	"context"

	"github.com/dmitrijs2005/authentify/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/identities"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/indexes"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/state"
)

// Repositories is one consistent set of stores, either bound directly to
// the backend or to an open transaction.
type Repositories struct {
	Identities identities.Repository
	Usernames  indexes.Repository
	Socials    indexes.Repository
	Sessions   sessions.Repository
	State      state.Repository
	AuditLog   auditlog.Repository
}

// RepositoryManager vends repositories for a storage backend.
//
// WithTx runs fn against repositories bound to a single transaction. Writes
// made through them become visible only if fn returns nil.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Repositories() Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
