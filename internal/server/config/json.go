package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pcpboard/internal/flagx"
	"github.com/dmitrijs2005/pcpboard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept both strings such as "3s" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	TokenTTL           timex.Duration `json:"token_ttl"`
	TokenSweepInterval timex.Duration `json:"token_sweep_interval"`
	PullTimeout        timex.Duration `json:"pull_timeout"`
	AdminUsername      string         `json:"admin_username"`
	AdminPassword      string         `json:"admin_password"`
	LoginRatePerMinute int            `json:"login_rate_per_minute"`
	LoginBurst         int            `json:"login_burst"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// non-zero field into config.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.TokenTTL.Duration > 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.TokenSweepInterval.Duration > 0 {
		config.TokenSweepInterval = c.TokenSweepInterval.Duration
	}
	if c.PullTimeout.Duration > 0 {
		config.PullTimeout = c.PullTimeout.Duration
	}
	if c.LoginRatePerMinute > 0 {
		config.LoginRatePerMinute = c.LoginRatePerMinute
	}
	if c.LoginBurst > 0 {
		config.LoginBurst = c.LoginBurst
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
