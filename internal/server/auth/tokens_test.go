package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

func inAnHour() models.Timestamp {
	return models.Timestamp(time.Now().Add(time.Hour).Unix())
}

func TestHexTokenGenerator(t *testing.T) {
	t.Parallel()

	a, err := HexTokenGenerator{}.Generate("acc-1", 0)
	require.NoError(t, err)
	assert.Len(t, a, 2*defaultHexTokenSize)

	b, err := HexTokenGenerator{Size: 8}.Generate("acc-1", 0)
	require.NoError(t, err)
	assert.Len(t, b, 16)
	assert.NotEqual(t, a[:16], b)
}

func TestJWT_GenerateAndParse(t *testing.T) {
	t.Parallel()

	g := NewJWTTokenGenerator([]byte("super-secret"))
	tok, err := g.Generate("acc-123", inAnHour())
	require.NoError(t, err)

	got, err := AccountFromToken(tok, []byte("super-secret"))
	require.NoError(t, err)
	assert.Equal(t, models.AccountRef("acc-123"), got)
}

func TestJWT_TokensAreUnique(t *testing.T) {
	t.Parallel()

	g := NewJWTTokenGenerator([]byte("k"))
	exp := inAnHour()
	a, err := g.Generate("acc-1", exp)
	require.NoError(t, err)
	b, err := g.Generate("acc-1", exp)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAccountFromToken_Expired(t *testing.T) {
	t.Parallel()

	g := NewJWTTokenGenerator([]byte("secret"))
	tok, err := g.Generate("u1", models.Timestamp(time.Now().Add(-time.Minute).Unix()))
	require.NoError(t, err)

	_, err = AccountFromToken(tok, []byte("secret"))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestAccountFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewJWTTokenGenerator([]byte("right-secret")).Generate("u2", inAnHour())
	require.NoError(t, err)

	_, err = AccountFromToken(tok, []byte("wrong-secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAccountFromToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := AccountFromToken("not.a.jwt", []byte("k"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAccountFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{Account: "u3"}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = AccountFromToken(tok, []byte("k"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestUnixTime_Clamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(42), unixTime(42).Unix())
	assert.Equal(t, int64(1<<63-1), unixTime(models.Timestamp(1<<64-1)).Unix())
}
