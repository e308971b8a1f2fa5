package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/dbx"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// PostgresRepository keeps sessions in the sessions table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT token, account, created_at, expires_at, active
		FROM sessions
		WHERE token = $1
	`

	var (
		s                  models.Session
		owner              string
		createdAt, expires int64
	)
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &owner, &createdAt, &expires, &s.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.Owner = models.AccountRef(owner)
	s.CreatedAt = models.Timestamp(dbx.Uint64(createdAt))
	s.ExpiresAt = models.Timestamp(dbx.Uint64(expires))
	return &s, nil
}

// Insert writes s, replacing any row with the same token.
func (r *PostgresRepository) Insert(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (token, account, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
		  account = EXCLUDED.account,
		  created_at = EXCLUDED.created_at,
		  expires_at = EXCLUDED.expires_at,
		  active = EXCLUDED.active
	`
	_, err := r.db.ExecContext(ctx, query,
		s.Token, string(s.Owner), dbx.Int64(uint64(s.CreatedAt)), dbx.Int64(uint64(s.ExpiresAt)), s.Active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Contains(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE token = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
