// Package cryptox derives credential hashes on the client side. The registry
// never hashes anything; it stores and compares whatever string the caller
// produces, and this package is one way to produce it.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/authentify/internal/common"
)

// SaltSize is the length of salts produced by NewSalt.
const SaltSize = 16

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived key so the key itself never leaves the client.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// CredentialHash returns the hex verifier for password and salt. The
// intermediate key is wiped before returning.
func CredentialHash(password, salt []byte) string {
	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	return hex.EncodeToString(MakeVerifier(key))
}

// SocialHash hashes a provider-scoped social identifier, e.g. a Google
// subject, into the value stored in the social index.
func SocialHash(provider, subject string) string {
	hash := sha256.Sum256([]byte(provider + ":" + subject))
	return hex.EncodeToString(hash[:])
}

// NewSalt returns a random salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}
