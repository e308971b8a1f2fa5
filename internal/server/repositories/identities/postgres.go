package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/dbx"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// PostgresRepository keeps identities in the identities table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, account models.AccountRef) (*models.Identity, error) {
	query :=
		`SELECT account, username, credential_hash, social_hash, social_provider,
		        verified, created_at, last_login_at, failed_attempts, locked
		 FROM identities
		 WHERE account = $1
		 `

	var (
		i                              models.Identity
		owner                          string
		createdAt, lastLoginAt, failed int64
	)
	err := r.db.QueryRowContext(ctx, query, string(account)).Scan(
		&owner, &i.Username, &i.CredentialHash, &i.SocialHash, &i.SocialProvider,
		&i.Verified, &createdAt, &lastLoginAt, &failed, &i.Locked)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	i.Owner = models.AccountRef(owner)
	i.CreatedAt = models.Timestamp(dbx.Uint64(createdAt))
	i.LastLoginAt = models.Timestamp(dbx.Uint64(lastLoginAt))
	i.FailedAttempts = uint32(dbx.Uint64(failed))

	return &i, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, i *models.Identity) error {
	query :=
		`INSERT INTO identities (account, username, credential_hash, social_hash, social_provider,
		                         verified, created_at, last_login_at, failed_attempts, locked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (account) DO UPDATE SET
		   username = EXCLUDED.username,
		   credential_hash = EXCLUDED.credential_hash,
		   social_hash = EXCLUDED.social_hash,
		   social_provider = EXCLUDED.social_provider,
		   verified = EXCLUDED.verified,
		   created_at = EXCLUDED.created_at,
		   last_login_at = EXCLUDED.last_login_at,
		   failed_attempts = EXCLUDED.failed_attempts,
		   locked = EXCLUDED.locked
		 `

	_, err := r.db.ExecContext(ctx, query,
		string(i.Owner), i.Username, i.CredentialHash, i.SocialHash, i.SocialProvider,
		i.Verified, dbx.Int64(uint64(i.CreatedAt)), dbx.Int64(uint64(i.LastLoginAt)),
		int64(i.FailedAttempts), i.Locked)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Contains(ctx context.Context, account models.AccountRef) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM identities WHERE account = $1)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, string(account)).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
