package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/state"
)

// Keys in the registry state table.
const (
	keyAdmin             = "admin"
	keyMaxFailedAttempts = "max_failed_attempts"
	keyLockoutDuration   = "lockout_duration"
	keyTotalUsers        = "total_users"
	keyActiveSessions    = "active_sessions"
)

var errCorruptState = errors.New("corrupt registry state")

// State is the registry-wide data shared by the services. It mirrors what
// is persisted and is only updated after a successful commit.
type State struct {
	Admin          models.AccountRef
	Policy         models.Policy
	TotalUsers     uint64
	ActiveSessions uint64
}

// loadState reads the persisted state. seeded is true when the store held
// nothing and st is built from admin and policy instead.
func loadState(ctx context.Context, repo state.Repository, admin models.AccountRef, policy models.Policy) (st *State, seeded bool, err error) {
	kv, err := repo.List(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(kv) == 0 {
		return &State{Admin: admin, Policy: policy}, true, nil
	}

	st = &State{}
	adminRaw, ok := kv[keyAdmin]
	if !ok {
		return nil, false, fmt.Errorf("%w: missing %s", errCorruptState, keyAdmin)
	}
	st.Admin = models.AccountRef(adminRaw)

	maxFailed, err := parseUint(kv, keyMaxFailedAttempts, math.MaxUint32)
	if err != nil {
		return nil, false, err
	}
	st.Policy.MaxFailedAttempts = uint32(maxFailed)

	lockout, err := parseUint(kv, keyLockoutDuration, math.MaxUint64)
	if err != nil {
		return nil, false, err
	}
	st.Policy.LockoutDuration = models.Duration(lockout)

	if st.TotalUsers, err = parseUint(kv, keyTotalUsers, math.MaxUint64); err != nil {
		return nil, false, err
	}
	if st.ActiveSessions, err = parseUint(kv, keyActiveSessions, math.MaxUint64); err != nil {
		return nil, false, err
	}
	return st, false, nil
}

func parseUint(kv map[string][]byte, key string, limit uint64) (uint64, error) {
	raw, ok := kv[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", errCorruptState, key)
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || v > limit {
		return 0, fmt.Errorf("%w: bad %s %q", errCorruptState, key, raw)
	}
	return v, nil
}

// saveState writes every key of st.
func saveState(ctx context.Context, repo state.Repository, st State) error {
	if err := repo.Set(ctx, keyAdmin, []byte(st.Admin)); err != nil {
		return err
	}
	if err := putUint(ctx, repo, keyMaxFailedAttempts, uint64(st.Policy.MaxFailedAttempts)); err != nil {
		return err
	}
	if err := putUint(ctx, repo, keyLockoutDuration, uint64(st.Policy.LockoutDuration)); err != nil {
		return err
	}
	if err := putUint(ctx, repo, keyTotalUsers, st.TotalUsers); err != nil {
		return err
	}
	return putUint(ctx, repo, keyActiveSessions, st.ActiveSessions)
}

func putUint(ctx context.Context, repo state.Repository, key string, v uint64) error {
	return repo.Set(ctx, key, []byte(strconv.FormatUint(v, 10)))
}

func incSat(v uint64) uint64 {
	if v == math.MaxUint64 {
		return v
	}
	return v + 1
}

func decSat(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	return v - 1
}
