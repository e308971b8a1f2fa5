package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authentify/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-m string   storage driver ("memory" or "postgres")
//	-d string   PostgreSQL DSN
//	-a string   admin account of a new registry
//	-f uint     max failed login attempts
//	-l int      lockout duration, minutes
//	-t int      session duration, minutes
//	-s string   JWT HMAC secret key
//	-k string   session token format ("hex" or "jwt")
//	-b string   S3 bucket for the event archive
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 root user
//	-p string   S3 root password
//	-x string   Sentry DSN
//	-n string   environment name
//
// os.Args is first filtered with flagx.FilterArgs so that the JSON config
// flags do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-m", "-d", "-a", "-f", "-l", "-t", "-s", "-k", "-b", "-g", "-e", "-u", "-p", "-x", "-n",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.StorageDriver, "m", config.StorageDriver, "storage driver (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AdminAccount, "a", config.AdminAccount, "admin account")

	maxFailed := fs.Uint("f", uint(config.MaxFailedAttempts), "max failed login attempts")
	lockout := fs.Int("l", int(config.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	session := fs.Int("t", int(config.SessionDuration.Minutes()), "session duration (in minutes)")

	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.TokenFormat, "k", config.TokenFormat, "session token format (hex|jwt)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 event archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.SentryDSN, "x", config.SentryDSN, "Sentry DSN")
	fs.StringVar(&config.Environment, "n", config.Environment, "environment name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Numeric flags replace the value only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			config.MaxFailedAttempts = uint32(*maxFailed)
		case "l":
			config.LockoutDuration = time.Duration(*lockout) * time.Minute
		case "t":
			config.SessionDuration = time.Duration(*session) * time.Minute
		}
	})
}
