package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/indexes"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/memory"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
)

const (
	adminAcc models.AccountRef = "admin"
	aliceAcc models.AccountRef = "acc-alice"
	bobAcc   models.AccountRef = "acc-bob"

	aliceHash  = "hash-alice"
	aliceOther = "hash-wrong"
)

var errDisk = errors.New("disk full")

type recordingSink struct {
	batches []events.Batch
	err     error
}

func (r *recordingSink) Publish(_ context.Context, b events.Batch) error {
	r.batches = append(r.batches, b)
	return r.err
}

func (r *recordingSink) kinds() []string {
	var out []string
	for _, b := range r.batches {
		for _, ev := range b.Events {
			out = append(out, ev.Kind())
		}
	}
	return out
}

// failingIndex fails every Insert.
type failingIndex struct {
	indexes.Repository
}

func (failingIndex) Insert(context.Context, string, models.AccountRef) error { return errDisk }

// flakyManager wraps a memory store and breaks the social index inside
// transactions when failSocial is set.
type flakyManager struct {
	*memory.Store
	failSocial bool
}

func (m *flakyManager) WithTx(ctx context.Context, fn func(context.Context, repomanager.Repositories) error) error {
	return m.Store.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if m.failSocial {
			r.Socials = failingIndex{r.Socials}
		}
		return fn(ctx, r)
	})
}

func newTestRegistry(t *testing.T, repos repomanager.RepositoryManager, opts ...Option) (*Registry, *recordingSink) {
	t.Helper()

	sink := &recordingSink{}
	opts = append([]Option{WithSink(sink)}, opts...)
	reg, err := NewRegistry(context.Background(), repos, adminAcc, models.DefaultPolicy(), opts...)
	require.NoError(t, err)
	return reg, sink
}

func registerAlice(t *testing.T, reg *Registry) {
	t.Helper()
	require.NoError(t, reg.Register(context.Background(), aliceAcc, "Alice", aliceHash, "social-alice", "github", 10))
}
