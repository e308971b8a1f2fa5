// Package validation holds the pure input checks applied before any registry
// state is read or written.
package validation

import (
	"strings"
	"unicode"

	"github.com/dmitrijs2005/authentify/internal/common"
)

// Username length bounds in bytes.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// MinCredentialHashLength is the shortest credential hash accepted.
const MinCredentialHashLength = 4

// ValidateUsername checks emptiness, then length, then the character class.
// Alphabetic runes and digits of any script are allowed, plus '_'.
func ValidateUsername(username string) error {
	if username == "" {
		return common.ErrEmptyUsername
	}
	if len(username) < MinUsernameLength {
		return common.ErrUsernameTooShort
	}
	if len(username) > MaxUsernameLength {
		return common.ErrUsernameTooLong
	}
	for _, r := range username {
		if !usernameRune(r) {
			return common.ErrInvalidUsernameFormat
		}
	}
	return nil
}

// usernameRune reports whether r is '_', a number, or carries the Unicode
// Alphabetic property. Alphabetic includes combining vowel signs such as
// U+093F, which are not letters.
func usernameRune(r rune) bool {
	return r == '_' ||
		unicode.IsLetter(r) ||
		unicode.Is(unicode.Other_Alphabetic, r) ||
		unicode.IsNumber(r)
}

// ValidateCredentialHash rejects empty hashes and hashes shorter than
// MinCredentialHashLength bytes.
func ValidateCredentialHash(hash string) error {
	if len(hash) < MinCredentialHashLength {
		return common.ErrEmptyCredentialHash
	}
	return nil
}

// ValidateSocialHash rejects an empty social hash.
func ValidateSocialHash(hash string) error {
	if hash == "" {
		return common.ErrEmptySocialHash
	}
	return nil
}

// NormalizeUsername returns the key used by the username index. It lowers
// like strings.ToLower except for two context rules: U+0130 becomes "i"
// plus a combining dot, and a capital sigma ending a word becomes 'ς'.
func NormalizeUsername(username string) string {
	if !strings.ContainsAny(username, "\u0130\u03a3") {
		return strings.ToLower(username)
	}

	runes := []rune(username)
	var b strings.Builder
	b.Grow(len(username) + 1)
	for i, r := range runes {
		switch {
		case r == '\u0130':
			b.WriteString("i\u0307")
		case r == '\u03a3' && finalSigma(runes, i):
			b.WriteRune('\u03c2')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// finalSigma reports whether runes[i] follows a cased rune and is not
// followed by one, skipping case-ignorable runes on both sides.
func finalSigma(runes []rune, i int) bool {
	before := false
	for j := i - 1; j >= 0; j-- {
		if caseIgnorable(runes[j]) {
			continue
		}
		before = cased(runes[j])
		break
	}
	if !before {
		return false
	}
	for j := i + 1; j < len(runes); j++ {
		if caseIgnorable(runes[j]) {
			continue
		}
		return !cased(runes[j])
	}
	return true
}

func cased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r) ||
		unicode.Is(unicode.Other_Lowercase, r) || unicode.Is(unicode.Other_Uppercase, r)
}

func caseIgnorable(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf, unicode.Lm, unicode.Sk) ||
		r == '\'' || r == '.' || r == ':'
}
