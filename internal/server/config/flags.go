package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-q string   gRPC health bind address (e.g. ":50051")
//	-l string   log level
//	-m string   document store: memory | postgres | sqlite
//	-d string   database DSN
//	-o string   object storage: memory | s3
//	-u string   S3 access key id
//	-p string   S3 secret access key
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-s string   bearer token HMAC secret
//	-i int      sweep interval, minutes
//
// Only the flags above are read from os.Args, so the -c config flag and any
// foreign flags pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-q", "-l", "-m", "-d", "-o", "-u", "-p", "-b", "-g", "-e", "-s", "-i",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "q", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.DocStoreType, "m", config.DocStoreType, "document store type")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageType, "o", config.StorageType, "object storage type")
	fs.StringVar(&config.S3AccessKeyID, "u", config.S3AccessKeyID, "S3 access key id")
	fs.StringVar(&config.S3SecretAccessKey, "p", config.S3SecretAccessKey, "S3 secret access key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sweepInterval := fs.Int("i", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SweepInterval = time.Duration(*sweepInterval) * time.Minute
}
