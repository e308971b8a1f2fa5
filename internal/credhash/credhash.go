// Package credhash is the caller-side helper that turns a password into the
// credential hash submitted to the registry, and a social subject into the
// social hash.
package credhash

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/cryptox"
)

var errEmptyPassword = errors.New("empty password")

// Run parses args and writes key=value lines to out. Prompts go to prompt.
//
//	-salt string      hex salt; a new one is generated and printed if empty
//	-provider string  social provider, used with -subject
//	-subject string   social subject; prints social_hash and skips the password
func Run(args []string, out, prompt io.Writer) error {
	fs := flag.NewFlagSet("credhash", flag.ContinueOnError)
	fs.SetOutput(prompt)

	saltHex := fs.String("salt", "", "hex salt")
	provider := fs.String("provider", "", "social provider")
	subject := fs.String("subject", "", "social subject")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject != "" {
		_, err := fmt.Fprintf(out, "social_hash=%s\n", cryptox.SocialHash(*provider, *subject))
		return err
	}

	var salt []byte
	if *saltHex == "" {
		salt = cryptox.NewSalt()
		if _, err := fmt.Fprintf(out, "salt=%s\n", hex.EncodeToString(salt)); err != nil {
			return err
		}
	} else {
		var err error
		if salt, err = hex.DecodeString(*saltHex); err != nil {
			return fmt.Errorf("bad salt: %w", err)
		}
	}

	password, err := GetPassword(prompt)
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	defer common.WipeByteArray(password)

	if len(password) == 0 {
		return errEmptyPassword
	}

	_, err = fmt.Fprintf(out, "credential_hash=%s\n", cryptox.CredentialHash(password, salt))
	return err
}
