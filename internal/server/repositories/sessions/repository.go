// Package sessions stores login sessions keyed by token. Records are never
// deleted; revocation flips the active flag.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Repository returns common.ErrorNotFound from Get for an unknown token.
// Insert overwrites.
type Repository interface {
	Get(ctx context.Context, token string) (*models.Session, error)
	Insert(ctx context.Context, session *models.Session) error
	Contains(ctx context.Context, token string) (bool, error)
}
