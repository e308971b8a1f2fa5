package indexes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/dbx"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// table describes one index table: its name and key column.
type table struct {
	name string
	key  string
}

var (
	usernameTable = table{name: "username_index", key: "username"}
	socialTable   = table{name: "social_index", key: "social_hash"}
)

// PostgresRepository is an index stored in a two-column table.
type PostgresRepository struct {
	db dbx.DBTX

	getQuery      string
	insertQuery   string
	containsQuery string
}

// NewUsernameRepository returns the username index. Keys are expected to be
// normalized already.
func NewUsernameRepository(db dbx.DBTX) *PostgresRepository {
	return newPostgresRepository(db, usernameTable)
}

// NewSocialRepository returns the social hash index.
func NewSocialRepository(db dbx.DBTX) *PostgresRepository {
	return newPostgresRepository(db, socialTable)
}

func newPostgresRepository(db dbx.DBTX, t table) *PostgresRepository {
	return &PostgresRepository{
		db:       db,
		getQuery: fmt.Sprintf(`SELECT account FROM %s WHERE %s = $1`, t.name, t.key),
		insertQuery: fmt.Sprintf(
			`INSERT INTO %[1]s (%[2]s, account) VALUES ($1, $2)
			 ON CONFLICT (%[2]s) DO UPDATE SET account = EXCLUDED.account`, t.name, t.key),
		containsQuery: fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, t.name, t.key),
	}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (models.AccountRef, error) {
	var account string
	if err := r.db.QueryRowContext(ctx, r.getQuery, key).Scan(&account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return models.AccountRef(account), nil
}

func (r *PostgresRepository) Insert(ctx context.Context, key string, account models.AccountRef) error {
	if _, err := r.db.ExecContext(ctx, r.insertQuery, key, string(account)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Contains(ctx context.Context, key string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, r.containsQuery, key).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
