// Package state persists registry-wide settings and counters (admin, policy,
// user and session counts) as a small key-value table.
package state

import "context"

// Repository is a byte-valued key-value store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	List(ctx context.Context) (map[string][]byte, error)
}
