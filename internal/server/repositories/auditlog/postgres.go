package auditlog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/dbx"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// PostgresRepository writes to the auth_events table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, rec models.AuditRecord) error {
	query := `
		INSERT INTO auth_events (kind, payload, occurred_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.Kind, rec.Payload, dbx.Int64(uint64(rec.OccurredAt))); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	query := `
		SELECT kind, payload, occurred_at
		FROM auth_events
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var at int64
		if err := rows.Scan(&rec.Kind, &rec.Payload, &at); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.OccurredAt = models.Timestamp(dbx.Uint64(at))
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
