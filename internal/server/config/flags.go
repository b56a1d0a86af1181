package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/flagx"
)

var serverFlags = []string{
	"-a", "-g", "-d", "-s", "-t", "-r",
	"-blob", "-dir", "-u", "-p", "-b", "-region", "-e",
	"-orders", "-m",
}

// parseFlags overlays Config fields from command-line flags.
//
// Supported flags:
//
//	-a string       HTTP bind address (e.g., ":8080")
//	-g string       gRPC health bind address, empty to disable
//	-d string       PostgreSQL DSN
//	-s string       JWT HMAC secret key
//	-t int          access token validity, minutes
//	-r int          refresh token validity, minutes
//	-blob string    blob backend: "s3" or "fs"
//	-dir string     blob directory for the "fs" backend
//	-u, -p string   S3 access key / secret key
//	-b string       S3 bucket
//	-region string  S3 region
//	-e string       S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-orders string  order service base URL
//	-m int          maximum upload size, MiB
//
// Duration flags are integers in minutes. Unknown arguments are ignored so the
// -c/-config flag handled by parseJson does not collide.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address, empty to disable")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend: s3 or fs")
	fs.StringVar(&config.BlobDir, "dir", config.BlobDir, "blob directory for the fs backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OrdersURL, "orders", config.OrdersURL, "order service base URL")

	maxUploadMiB := fs.Int64("m", config.MaxUploadSize>>20, "maximum upload size (in MiB)")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
	config.MaxUploadSize = *maxUploadMiB << 20
}
