// Package auditlog appends registry events to a durable log.
package auditlog

import (
	"context"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, record models.AuditRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}
