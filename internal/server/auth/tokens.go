// Package auth mints opaque session tokens for hosts that do not bring
// their own. The session manager never looks inside a token.
package auth

import (
	"errors"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// TokenGenerator returns a fresh token for a session of account that
// expires at expiresAt (Unix seconds).
type TokenGenerator interface {
	Generate(account models.AccountRef, expiresAt models.Timestamp) (string, error)
}

// HexTokenGenerator mints random hex strings.
type HexTokenGenerator struct {
	// Size is the number of random bytes; the token is twice as long.
	Size int
}

const defaultHexTokenSize = 32

func (g HexTokenGenerator) Generate(models.AccountRef, models.Timestamp) (string, error) {
	size := g.Size
	if size <= 0 {
		size = defaultHexTokenSize
	}
	return common.MakeRandHexString(size)
}

// Claims carry the account in addition to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Account string `json:"account"`
}

// JWTTokenGenerator mints HS256 tokens whose jti is a random uuid, so two
// sessions of one account never share a token.
type JWTTokenGenerator struct {
	secretKey []byte
}

// NewJWTTokenGenerator constructs a JWTTokenGenerator signing with secretKey.
func NewJWTTokenGenerator(secretKey []byte) *JWTTokenGenerator {
	return &JWTTokenGenerator{secretKey: secretKey}
}

func (g *JWTTokenGenerator) Generate(account models.AccountRef, expiresAt models.Timestamp) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(unixTime(expiresAt)),
		},
		Account: string(account),
	})

	tokenString, err := token.SignedString(g.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// AccountFromToken checks the signature and expiry of a token minted by
// JWTTokenGenerator and returns its account.
func AccountFromToken(tokenString string, secretKey []byte) (models.AccountRef, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// The exp second itself is still valid, as for sessions.
		jwt.WithLeeway(time.Second),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}

	return models.AccountRef(claims.Account), nil
}

func unixTime(ts models.Timestamp) time.Time {
	if uint64(ts) > math.MaxInt64 {
		return time.Unix(math.MaxInt64, 0)
	}
	return time.Unix(int64(ts), 0)
}
