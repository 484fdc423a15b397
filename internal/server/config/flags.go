package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/flagx"
)

var shortFlags = []string{"-a", "-o", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-k", "-i", "-m"}

// parseFlags overlays short command-line flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-o string   ops HTTP bind address (health checks)
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u/-p       S3 user / password
//	-b/-g/-e    S3 bucket / region / endpoint
//	-k string   OpenAI API key
//	-i string   Ideogram API key
//	-m int      maximum days per generation batch
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.EndpointAddrHTTP, "o", config.EndpointAddrHTTP, "address and port for health checks")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OpenAIAPIKey, "k", config.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&config.IdeogramAPIKey, "i", config.IdeogramAPIKey, "Ideogram API key")
	fs.IntVar(&config.MaxBatchDays, "m", config.MaxBatchDays, "max days per generation batch")

	if err := fs.Parse(flagx.FilterArgs(args, shortFlags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		}
	})
	return nil
}
