package config

import (
	"encoding/json"
	"os"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/flagx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration,
// so both "4h" and integer nanoseconds are accepted. Empty strings and zero
// durations leave the current value alone.
type JsonConfig struct {
	ListenAddr    string         `json:"listen_addr"`
	DatabaseDSN   string         `json:"database_dsn"`
	SecretKey     string         `json:"secret_key"`
	SessionTTL    timex.Duration `json:"session_ttl"`
	RedisURL      string         `json:"redis_url"`
	CookieName    string         `json:"cookie_name"`
	SecureCookies *bool          `json:"secure_cookies"`
}

// parseJson loads configuration values from the file named by -c/-config
// into config. Without the flag nothing happens; read or decode errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	for _, f := range []struct {
		dst *string
		v   string
	}{
		{&config.ListenAddr, c.ListenAddr},
		{&config.DatabaseDSN, c.DatabaseDSN},
		{&config.SecretKey, c.SecretKey},
		{&config.RedisURL, c.RedisURL},
		{&config.CookieName, c.CookieName},
	} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
}
