package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "AUTHENTIFY_"

// loadDotEnv is replaced in tests.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays AUTHENTIFY_* variables, after loading .env from the
// working directory when present. Existing variables are not overridden by
// .env. Malformed numbers panic, like malformed flags.
func parseEnv(config *Config) {
	_ = loadDotEnv()

	envString(&config.StorageDriver, "STORAGE")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.AdminAccount, "ADMIN")
	if v, ok := lookup("MAX_FAILED_ATTEMPTS"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			panic(err)
		}
		config.MaxFailedAttempts = uint32(n)
	}
	envMinutes(&config.LockoutDuration, "LOCKOUT_MINUTES")
	envMinutes(&config.SessionDuration, "SESSION_MINUTES")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.TokenFormat, "TOKEN_FORMAT")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.SentryDSN, "SENTRY_DSN")
	envString(&config.Environment, "ENV")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envMinutes(dst *time.Duration, name string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = time.Duration(n) * time.Minute
}
