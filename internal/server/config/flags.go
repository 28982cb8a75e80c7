package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/homevault/internal/flagx"
)

var shortFlags = []string{
	"-a", "-f", "-u", "-d", "-s", "-t", "-l", "-i", "-m",
	"-p", "-w", "-e", "-r", "-k", "-x", "-v",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   bind address (e.g. ":8000")
//	-f string   storage directory
//	-u string   credentials file
//	-d string   PostgreSQL DSN
//	-s string   session token secret
//	-t int      session ttl, minutes
//	-l int      requests per rate window
//	-i int      rate window, seconds
//	-m int      number of clients the rate limiter tracks
//	-p string   pages directory
//	-w string   static directory
//	-e string   certificate offered for download
//	-r string   TLS certificate file
//	-k string   TLS key file
//	-x          trust proxy headers (use -x=true)
//	-v string   log level
//
// Args are first filtered to the flags above with flagx.FilterArgs, so
// the -c config flag and unknown flags do not cause errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, shortFlags)

	fs := flag.NewFlagSet("homevault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StorageDir, "f", config.StorageDir, "storage directory")
	fs.StringVar(&config.CredentialsFile, "u", config.CredentialsFile, "credentials file")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session ttl (in minutes)")
	fs.IntVar(&config.RateLimit, "l", config.RateLimit, "requests per rate window")
	rateInterval := fs.Int("i", int(config.RateInterval.Seconds()), "rate window (in seconds)")
	fs.IntVar(&config.RateLimiterCapacity, "m", config.RateLimiterCapacity, "tracked rate limiter clients")

	fs.StringVar(&config.PagesDir, "p", config.PagesDir, "pages directory")
	fs.StringVar(&config.StaticDir, "w", config.StaticDir, "static files directory")
	fs.StringVar(&config.CertificateFile, "e", config.CertificateFile, "certificate offered for download")
	fs.StringVar(&config.TLSCertFile, "r", config.TLSCertFile, "TLS certificate file")
	fs.StringVar(&config.TLSKeyFile, "k", config.TLSKeyFile, "TLS key file")
	fs.BoolVar(&config.TrustProxy, "x", config.TrustProxy, "trust X-Forwarded-For / X-Real-IP")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// durations only when given: minutes/seconds would truncate JSON values
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		case "i":
			config.RateInterval = time.Duration(*rateInterval) * time.Second
		}
	})
	return nil
}
