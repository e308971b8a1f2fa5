package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authentify/internal/logging"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	batches []Batch
	err     error
}

func (r *recordingSink) Publish(_ context.Context, b Batch) error {
	r.batches = append(r.batches, b)
	return r.err
}

func TestKinds(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{IdentityRegistered{}, "IdentityRegistered"},
		{IdentityVerified{}, "IdentityVerified"},
		{LoginSuccessful{}, "LoginSuccessful"},
		{LoginFailed{}, "LoginFailed"},
		{AccountLocked{}, "AccountLocked"},
		{AccountUnlocked{}, "AccountUnlocked"},
		{SessionCreated{}, "SessionCreated"},
		{SessionRevoked{}, "SessionRevoked"},
		{PasswordChanged{}, "PasswordChanged"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ev.Kind())
	}
}

func TestEncode_RedactsTokens(t *testing.T) {
	env, err := Encode(SessionCreated{Account: "acc-1", Token: "0123456789abcdef", ExpiresAt: 4600})
	require.NoError(t, err)
	assert.Equal(t, KindSessionCreated, env.Kind)
	assert.JSONEq(t, `{"account":"acc-1","token":"01234567...","expires_at":4600}`, string(env.Payload))

	env, err = Encode(SessionRevoked{Token: "0123456789abcdef", Timestamp: 7})
	require.NoError(t, err)
	assert.NotContains(t, string(env.Payload), "89abcdef")
}

func TestEncode_KeepsOtherEvents(t *testing.T) {
	env, err := Encode(LoginFailed{Username: "alice", Reason: ReasonInvalidPassword, Timestamp: 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice","reason":"Invalid password","timestamp":10}`, string(env.Payload))
}

func TestMulti_CallsEverySinkAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{err: boom}
	b := &recordingSink{}

	err := Multi{a, b, Discard{}}.Publish(context.Background(), Batch{OccurredAt: 1, Events: []Event{AccountUnlocked{}}})
	require.ErrorIs(t, err, boom)
	assert.Len(t, a.batches, 1)
	assert.Len(t, b.batches, 1)

	assert.NoError(t, Multi{}.Publish(context.Background(), Batch{}))
}

func TestLogSink_WritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	err := NewLogSink(log).Publish(context.Background(), Batch{
		OccurredAt: 1000,
		Events: []Event{
			LoginFailed{Username: "alice", Reason: ReasonInvalidPassword, Timestamp: 1000},
			AccountLocked{Account: "acc-1", Username: "alice", Reason: ReasonTooManyAttempts, Timestamp: 1000},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=\"registry event\""))
	assert.Contains(t, out, "kind=LoginFailed")
	assert.Contains(t, out, "kind=AccountLocked")
	assert.Contains(t, out, "component=events")
}

func TestStoreSink_AppendsEnvelopes(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Repositories().AuditLog

	err := NewStoreSink(repo).Publish(ctx, Batch{
		OccurredAt: 55,
		Events: []Event{
			SessionCreated{Account: "acc-1", Token: "0123456789abcdef", ExpiresAt: 100},
			LoginSuccessful{Account: "acc-1", Username: "alice", Timestamp: 55},
		},
	})
	require.NoError(t, err)

	recs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, KindLoginSuccessful, recs[0].Kind)
	assert.Equal(t, KindSessionCreated, recs[1].Kind)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recs[1].Payload, &payload))
	assert.Equal(t, "01234567...", payload["token"])
	assert.EqualValues(t, 55, recs[1].OccurredAt)
}
