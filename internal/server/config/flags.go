package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-t int      token lifetime, hours
//	-w int      expired token sweep interval, minutes
//	-p int      bridge pull timeout, milliseconds
//	-u string   seeded admin username
//	-s string   seeded admin password
//	-l int      login attempts per minute per client IP
//	-b string   S3 bucket for snapshot archives
//
// Args are filtered with flagx.FilterArgs first, so unrelated flags such as
// -c are ignored here.
func parseFlags(config *Config, osArgs []string) error {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-d", "-t", "-w", "-p", "-u", "-s", "-l", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Hours()), "token lifetime (in hours)")
	sweepInterval := fs.Int("w", int(config.TokenSweepInterval.Minutes()), "expired token sweep interval (in minutes)")
	pullTimeout := fs.Int("p", int(config.PullTimeout.Milliseconds()), "bridge pull timeout (in milliseconds)")

	fs.StringVar(&config.AdminUsername, "u", config.AdminUsername, "seeded admin username")
	fs.StringVar(&config.AdminPassword, "s", config.AdminPassword, "seeded admin password")
	fs.IntVar(&config.LoginRatePerMinute, "l", config.LoginRatePerMinute, "login attempts per minute per IP")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for snapshot archives")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Hour
	config.TokenSweepInterval = time.Duration(*sweepInterval) * time.Minute
	config.PullTimeout = time.Duration(*pullTimeout) * time.Millisecond
	return nil
}
