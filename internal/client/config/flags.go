package config

import (
	"flag"
	"os"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the
// flags listed in doc.go are considered; os.Args is filtered with
// flagx.FilterArgs so other components can own the rest.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-w", "-i", "-t", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.CredentialsMode, "m", cfg.CredentialsMode, "credentials mode (cookie|bearer)")
	fs.StringVar(&cfg.Landing, "l", cfg.Landing, "landing route")
	warning := fs.Int("w", int(cfg.WarningBefore.Seconds()), "session warning lead (in seconds)")
	check := fs.Int("i", int(cfg.CheckInterval.Seconds()), "drift check interval (in seconds)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	revalidate := fs.Int("v", int(cfg.RevalidateAfter.Seconds()), "revalidate after idle (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.WarningBefore = time.Duration(*warning) * time.Second
	cfg.CheckInterval = time.Duration(*check) * time.Second
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.RevalidateAfter = time.Duration(*revalidate) * time.Second
}
