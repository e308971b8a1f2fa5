package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authentify/internal/flagx"
	"github.com/dmitrijs2005/authentify/internal/timex"
)

// JsonConfig is the JSON file layout. Durations use timex.Duration, so both
// "15m" and integer nanoseconds are accepted. Fields left out of the file
// keep their current value.
type JsonConfig struct {
	StorageDriver     string         `json:"storage_driver"`
	DatabaseDSN       string         `json:"database_dsn"`
	AdminAccount      string         `json:"admin_account"`
	MaxFailedAttempts *uint32        `json:"max_failed_attempts"`
	LockoutDuration   timex.Duration `json:"lockout_duration"`
	SessionDuration   timex.Duration `json:"session_duration"`
	SecretKey         string         `json:"secret_key"`
	TokenFormat       string         `json:"token_format"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	SentryDSN         string         `json:"sentry_dsn"`
	Environment       string         `json:"environment"`
}

// parseJson overlays the file named by -c or -config, if any. An unreadable
// file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AdminAccount, c.AdminAccount)
	if c.MaxFailedAttempts != nil {
		config.MaxFailedAttempts = *c.MaxFailedAttempts
	}
	if c.LockoutDuration.Duration != 0 {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.SessionDuration.Duration != 0 {
		config.SessionDuration = c.SessionDuration.Duration
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenFormat, c.TokenFormat)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SentryDSN, c.SentryDSN)
	setString(&config.Environment, c.Environment)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
