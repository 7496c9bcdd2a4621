package config

import (
	"encoding/json"
	"os"

	"github.com/secrypt/secrypt/internal/flagx"
	"github.com/secrypt/secrypt/internal/timex"
)

// JsonConfig is the file-format DTO for the JSON overlay. Interval fields
// use timex.Duration so both "15m" strings and integer nanoseconds parse.
type JsonConfig struct {
	DatabaseDSN                   string         `json:"database_dsn"`
	SecretKey                     string         `json:"secret_key"`
	AccessTokenValidityDuration   timex.Duration `json:"access_token_validity_duration"`
	PasswordResetValidityDuration timex.Duration `json:"password_reset_validity_duration"`
	SweepInterval                 timex.Duration `json:"sweep_interval"`
	AccessLogRetention            timex.Duration `json:"access_log_retention"`
	S3RootUser                    string         `json:"s3_root_user"`
	S3RootPassword                string         `json:"s3_root_password"`
	S3Bucket                      string         `json:"s3_bucket"`
	S3Region                      string         `json:"s3_region"`
	S3BaseEndpoint                string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file given via the
// -c/-config flags into the provided Config. If no file is given, nothing
// is loaded; an unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.PasswordResetValidityDuration.Duration != 0 {
		config.PasswordResetValidityDuration = c.PasswordResetValidityDuration.Duration
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.AccessLogRetention.Duration != 0 {
		config.AccessLogRetention = c.AccessLogRetention.Duration
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
