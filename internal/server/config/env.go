package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFile is read before the environment is inspected. Variables already
// present in the process environment are not overwritten.
var dotenvFile = ".env"

// LoadDotenv loads dotenvFile into the process environment if it exists.
func LoadDotenv() error {
	err := godotenv.Load(dotenvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", dotenvFile, err)
	}
	return nil
}

// parseEnv overlays PCP_* variables onto config. Durations use Go syntax
// ("720h", "3s").
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PCP_ADDR", &config.EndpointAddrHTTP)
	str("PCP_DATABASE_DSN", &config.DatabaseDSN)
	str("PCP_ADMIN_USERNAME", &config.AdminUsername)
	str("PCP_ADMIN_PASSWORD", &config.AdminPassword)
	str("PCP_S3_ROOT_USER", &config.S3RootUser)
	str("PCP_S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("PCP_S3_BUCKET", &config.S3Bucket)
	str("PCP_S3_REGION", &config.S3Region)
	str("PCP_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	return errors.Join(
		dur("PCP_TOKEN_TTL", &config.TokenTTL),
		dur("PCP_TOKEN_SWEEP_INTERVAL", &config.TokenSweepInterval),
		dur("PCP_PULL_TIMEOUT", &config.PullTimeout),
		num("PCP_LOGIN_RATE_PER_MINUTE", &config.LoginRatePerMinute),
		num("PCP_LOGIN_BURST", &config.LoginBurst),
	)
}
