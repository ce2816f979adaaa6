package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/postboard/internal/flagx"
)

var knownFlags = []string{
	"-a", "-rpc", "-d", "-s", "-S", "-t", "-r",
	"-u", "-p", "-b", "-g", "-e", "-redis", "-env",
}

// parseFlags overlays Config with command-line flags.
//
//	-a string     HTTP bind address (":8080")
//	-rpc string   gRPC bind address (":50051")
//	-d string     PostgreSQL DSN
//	-s string     access token HMAC secret
//	-S string     refresh token HMAC secret
//	-t int        access token validity, minutes
//	-r int        refresh token validity, minutes
//	-u/-p string  S3 root user / password
//	-b string     S3 bucket
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-redis string Redis address for the notification queue
//	-env string   environment name ("development", "production")
//
// Arguments are filtered with flagx.FilterArgs first so the -c / -config
// flag handled by the JSON loader does not trip this FlagSet.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "rpc", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "S", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.StringVar(&config.Environment, "env", config.Environment, "environment name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minute flags only override when given; otherwise env or JSON values
	// such as "90s" would be truncated to whole minutes.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
		}
	})
}
