// Package indexes stores the secondary lookups that resolve a username or a
// social hash to an account. Entries are written once at registration.
package indexes

import (
	"context"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Repository maps a key to an account. Get returns common.ErrorNotFound for
// an unknown key. Insert overwrites.
type Repository interface {
	Get(ctx context.Context, key string) (models.AccountRef, error)
	Insert(ctx context.Context, key string, account models.AccountRef) error
	Contains(ctx context.Context, key string) (bool, error)
}
