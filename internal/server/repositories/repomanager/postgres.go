// Package repomanager wires repository constructors to a storage backend and
// owns schema migrations (via goose) and transaction boundaries.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/dbx"
	"github.com/dmitrijs2005/authentify/internal/server/migrations"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/identities"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/indexes"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/state"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories over one
// connection pool.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// NewPostgresRepositoryManager wraps an already opened pool.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenPostgres opens a pgx pool for dsn and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return NewPostgresRepositoryManager(db), nil
}

// Identities returns an identities.Repository bound to db.
func (m *PostgresRepositoryManager) Identities(db dbx.DBTX) identities.Repository {
	return identities.NewPostgresRepository(db)
}

// Usernames returns the username index bound to db.
func (m *PostgresRepositoryManager) Usernames(db dbx.DBTX) indexes.Repository {
	return indexes.NewUsernameRepository(db)
}

// Socials returns the social hash index bound to db.
func (m *PostgresRepositoryManager) Socials(db dbx.DBTX) indexes.Repository {
	return indexes.NewSocialRepository(db)
}

// Sessions returns a sessions.Repository bound to db.
func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

// State returns a state.Repository bound to db.
func (m *PostgresRepositoryManager) State(db dbx.DBTX) state.Repository {
	return state.NewPostgresRepository(db)
}

// AuditLog returns an auditlog.Repository bound to db.
func (m *PostgresRepositoryManager) AuditLog(db dbx.DBTX) auditlog.Repository {
	return auditlog.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) bind(db dbx.DBTX) Repositories {
	return Repositories{
		Identities: m.Identities(db),
		Usernames:  m.Usernames(db),
		Socials:    m.Socials(db),
		Sessions:   m.Sessions(db),
		State:      m.State(db),
		AuditLog:   m.AuditLog(db),
	}
}

// Repositories returns repositories bound to the pool.
func (m *PostgresRepositoryManager) Repositories() Repositories {
	return m.bind(m.db)
}

// WithTx runs fn inside a database transaction.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, m.bind(tx))
	})
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

// Close closes the pool.
func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
