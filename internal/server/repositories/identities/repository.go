// Package identities stores identity records keyed by account.
package identities

import (
	"context"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Repository is a key-value store of identities. Get returns
// common.ErrorNotFound when the account has no record. Insert overwrites.
type Repository interface {
	Get(ctx context.Context, account models.AccountRef) (*models.Identity, error)
	Insert(ctx context.Context, identity *models.Identity) error
	Contains(ctx context.Context, account models.AccountRef) (bool, error)
}
