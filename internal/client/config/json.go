package config

import (
	"encoding/json"
	"os"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/flagx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/timex"
)

// JsonConfig is the on-disk form of Config. Pointer fields distinguish
// "absent" from "zero" so a partial file only overrides what it names.
type JsonConfig struct {
	APIBaseURL      *string         `json:"api_base_url"`
	DBPath          *string         `json:"db_path"`
	CredentialsMode *string         `json:"credentials_mode"`
	WarningBefore   *timex.Duration `json:"warning_before"`
	CheckInterval   *timex.Duration `json:"check_interval"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	Landing         *string         `json:"landing"`
	RevalidateAfter *timex.Duration `json:"revalidate_after"`
}

// parseJson overlays cfg with the file named by -c/-config. No flag, no
// change. Read or decode errors panic, like flag errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigFilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.CredentialsMode, jc.CredentialsMode)
	setString(&cfg.Landing, jc.Landing)
	if jc.WarningBefore != nil {
		cfg.WarningBefore = jc.WarningBefore.Duration
	}
	if jc.CheckInterval != nil {
		cfg.CheckInterval = jc.CheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RevalidateAfter != nil {
		cfg.RevalidateAfter = jc.RevalidateAfter.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
