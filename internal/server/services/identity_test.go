package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/memory"
)

func TestRegister_LookupIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	reg, sink := newTestRegistry(t, memory.NewStore())
	registerAlice(t, reg)

	for _, name := range []string{"ALICE", "Alice", "alice", "aLiCe"} {
		acc, err := reg.LookupByUsername(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, aliceAcc, acc, name)
	}

	acc, err := reg.LookupBySocial(ctx, "social-alice")
	require.NoError(t, err)
	assert.Equal(t, aliceAcc, acc)

	ok, err := reg.Contains(ctx, aliceAcc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, reg.TotalUsers())

	require.Len(t, sink.batches, 1)
	assert.EqualValues(t, 10, sink.batches[0].OccurredAt)
	assert.Equal(t, events.IdentityRegistered{
		Account:   aliceAcc,
		Username:  "Alice",
		Provider:  "github",
		Timestamp: 10,
	}, sink.batches[0].Events[0])
}

func TestRegister_StoresFreshRecord(t *testing.T) {
	reg, _ := newTestRegistry(t, memory.NewStore())
	registerAlice(t, reg)

	got, err := reg.GetIdentity(context.Background(), aliceAcc)
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{
		Owner:          aliceAcc,
		Username:       "Alice",
		CredentialHash: aliceHash,
		SocialHash:     "social-alice",
		SocialProvider: "github",
		CreatedAt:      10,
	}, got)
}

func TestRegister_Conflicts(t *testing.T) {
	tests := []struct {
		name     string
		account  models.AccountRef
		username string
		social   string
		want     error
	}{
		{"same account", aliceAcc, "someone", "social-x", common.ErrIdentityAlreadyExists},
		{"same account checked before username", aliceAcc, "alice", "social-alice", common.ErrIdentityAlreadyExists},
		{"username any case", bobAcc, "ALICE", "social-bob", common.ErrUsernameAlreadyTaken},
		{"username checked before social", bobAcc, "alice", "social-alice", common.ErrUsernameAlreadyTaken},
		{"social hash", bobAcc, "bob", "social-alice", common.ErrSocialIdAlreadyBound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			reg, sink := newTestRegistry(t, memory.NewStore())
			registerAlice(t, reg)

			err := reg.Register(ctx, tt.account, tt.username, "hash-bob", tt.social, "google", 20)
			require.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 1, reg.TotalUsers())
			assert.Len(t, sink.batches, 1)

			ok, err := reg.Contains(ctx, bobAcc)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRegister_ValidationBeforeLookups(t *testing.T) {
	tests := []struct {
		name     string
		username string
		hash     string
		social   string
		want     error
	}{
		{"empty username", "", aliceHash, "s", common.ErrEmptyUsername},
		{"short username", "al", aliceHash, "s", common.ErrUsernameTooShort},
		{"bad format", "alice!", aliceHash, "s", common.ErrInvalidUsernameFormat},
		{"username before hash", "", "", "", common.ErrEmptyUsername},
		{"short hash", "alice", "abc", "s", common.ErrEmptyCredentialHash},
		{"hash before social", "alice", "", "", common.ErrEmptyCredentialHash},
		{"empty social", "alice", aliceHash, "", common.ErrEmptySocialHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t, memory.NewStore())
			registerAlice(t, reg)

			// aliceAcc already exists, so a lookup-first order would report that.
			err := reg.Register(context.Background(), aliceAcc, tt.username, tt.hash, tt.social, "", 20)
			require.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 1, reg.TotalUsers())
		})
	}
}

func TestRegister_StorageFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	store := &flakyManager{Store: memory.NewStore()}
	reg, sink := newTestRegistry(t, store)

	store.failSocial = true
	err := reg.Register(ctx, aliceAcc, "alice", aliceHash, "social-alice", "", 10)
	require.ErrorIs(t, err, errDisk)
	assert.False(t, common.IsDomainError(err))
	assert.Empty(t, sink.batches)

	ok, err := reg.Contains(ctx, aliceAcc)
	require.NoError(t, err)
	assert.False(t, ok)

	free, err := reg.IsUsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, free)
	assert.EqualValues(t, 0, reg.TotalUsers())

	raw, err := store.Repositories().State.Get(ctx, keyTotalUsers)
	require.NoError(t, err)
	assert.Equal(t, "0", string(raw))

	store.failSocial = false
	require.NoError(t, reg.Register(ctx, aliceAcc, "alice", aliceHash, "social-alice", "", 11))
	assert.EqualValues(t, 1, reg.TotalUsers())
}

func TestLookups_NotFound(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, memory.NewStore())

	_, err := reg.LookupByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	_, err = reg.LookupBySocial(ctx, "nothing")
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	_, err = reg.GetIdentity(ctx, "acc-x")
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, memory.NewStore())
	registerAlice(t, reg)

	free, err := reg.IsUsernameAvailable(ctx, "ALICE")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = reg.IsUsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = reg.IsSocialIdAvailable(ctx, "social-alice")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = reg.IsSocialIdAvailable(ctx, "social-bob")
	require.NoError(t, err)
	assert.True(t, free)
}

func TestChangeCredential(t *testing.T) {
	ctx := context.Background()
	reg, sink := newTestRegistry(t, memory.NewStore())
	registerAlice(t, reg)

	err := reg.ChangeCredential(ctx, bobAcc, aliceHash, "hash-new", 20)
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	err = reg.ChangeCredential(ctx, aliceAcc, aliceOther, "hash-new", 20)
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	err = reg.ChangeCredential(ctx, aliceAcc, aliceHash, "abc", 20)
	assert.ErrorIs(t, err, common.ErrEmptyCredentialHash)

	require.NoError(t, reg.ChangeCredential(ctx, aliceAcc, aliceHash, "hash-new", 20))
	assert.Equal(t, []string{events.KindIdentityRegistered, events.KindPasswordChanged}, sink.kinds())

	ok, err := reg.VerifyCredential(ctx, aliceAcc, "hash-new")
	require.NoError(t, err)
	assert.True(t, ok)

	// A wrong old hash is not a login attempt.
	got, err := reg.GetIdentity(ctx, aliceAcc)
	require.NoError(t, err)
	assert.Zero(t, got.FailedAttempts)
}
