package config

import "time"

// Config holds runtime settings for the blog CLI.
//
// Durations are time.Duration; the flag layer takes whole seconds.
type Config struct {
	APIBaseURL      string
	DBPath          string
	CredentialsMode string
	WarningBefore   time.Duration
	CheckInterval   time.Duration
	RequestTimeout  time.Duration
	Landing         string
	RevalidateAfter time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api"
	c.DBPath = "blog-client.db"
	c.CredentialsMode = "cookie"
	c.WarningBefore = 5 * time.Minute
	c.CheckInterval = time.Minute
	c.RequestTimeout = 15 * time.Second
	c.Landing = "/"
	c.RevalidateAfter = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
