// Package config loads client settings from defaults, TOML files, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Makepad-fr/tada-remote/internal/api"
)

const (
	DefaultAPIURL       = "https://todolistapi.rsanjur.com/api"
	DefaultUpdateMethod = "patch"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultTheme        = "classic"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds everything the client needs at startup.
type Config struct {
	APIURL       string        `toml:"api_url"`
	Timeout      time.Duration `toml:"timeout"`
	UpdateMethod string        `toml:"update_method"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`

	Theme string `toml:"theme"`
	Group bool   `toml:"group"` // plain list grouped by pending/done

	// Flag-only switches.
	Plain bool `toml:"-"`
	Yes   bool `toml:"-"`
}

func setDefaults(cfg *Config) {
	cfg.APIURL = DefaultAPIURL
	cfg.UpdateMethod = DefaultUpdateMethod
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Theme = DefaultTheme
}

// Default returns a config with only the defaults applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Validate checks the values a client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_url %q must be an http(s) URL", ErrInvalid, c.APIURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	}
	if _, err := api.ParseUpdateMethod(c.UpdateMethod); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: log_format %q (want text, json or logfmt)", ErrInvalid, c.LogFormat)
	}
	return nil
}

// ClientOptions turns the config into api.Client options.
func (c *Config) ClientOptions() []api.Option {
	m, _ := api.ParseUpdateMethod(c.UpdateMethod)
	return []api.Option{
		api.WithTimeout(c.Timeout),
		api.WithUpdateMethod(m),
	}
}
