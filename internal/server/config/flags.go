package config

import (
	"flag"
	"os"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session lifetime, minutes
//	-r string   Redis URL for revocations (empty keeps them in memory)
//	-g string   access token cookie name
//	-k          mark cookies Secure (use -k=false to clear)
//
// The session lifetime is accepted in whole minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-g", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session lifetime (in minutes)")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for revoked sessions")
	fs.StringVar(&config.CookieName, "g", config.CookieName, "access token cookie name")
	fs.BoolVar(&config.SecureCookies, "k", config.SecureCookies, "secure cookies")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
