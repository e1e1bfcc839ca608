// Package config loads client settings from defaults, an optional dealerdesk.yaml and
// DEALERDESK_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/session"
)

const (
	EnvPrefix  = "DEALERDESK"
	ConfigName = "dealerdesk"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBadger = "badger"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
)

type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIPattern string        `mapstructure:"api_pattern"`
	Timeout    time.Duration `mapstructure:"timeout"`

	TokenPath       string `mapstructure:"token_path"`
	RefreshPath     string `mapstructure:"refresh_path"`
	PermissionsPath string `mapstructure:"permissions_path"`
	LoginURL        string `mapstructure:"login_url"`

	SessionStore string `mapstructure:"session_store"`
	SessionPath  string `mapstructure:"session_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	DummyDelay time.Duration `mapstructure:"dummy_delay"`
}

type options struct {
	file      string
	paths     []string
	overrides map[string]any
}

type Option func(*options)

// WithFile reads exactly this config file. A missing file is an error.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithSearchPaths replaces the directories searched for dealerdesk.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(o *options) {
		o.paths = paths
	}
}

// WithOverrides sets keys above every other source, e.g. values of command line flags.
func WithOverrides(values map[string]any) Option {
	return func(o *options) {
		o.overrides = values
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("api_pattern", "")
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("token_path", constants.DefaultTokenPath)
	v.SetDefault("refresh_path", constants.DefaultRefreshPath)
	v.SetDefault("permissions_path", constants.DefaultPermissionsPath)
	v.SetDefault("login_url", constants.DefaultLoginURL)
	v.SetDefault("session_store", StoreFile)
	v.SetDefault("session_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", FormatJSON)
	v.SetDefault("dummy_delay", constants.DefaultDummyDelay)
}

// Load reads the configuration. It does not validate it.
func Load(opts ...Option) (*Config, error) {
	o := options{paths: []string{".", xdg.ConfigHome + "/dealerdesk"}}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if o.file != "" {
		v.SetConfigFile(o.file)
	} else {
		v.SetConfigName(ConfigName)
		for _, p := range o.paths {
			v.AddConfigPath(p)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %v", constants.ErrConfiguration, err)
		}
	}
	for k, val := range o.overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", constants.ErrConfiguration, err)
	}
	return &cfg, nil
}

// Validate reports the first setting the client cannot work without.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: %w", constants.ErrConfiguration, constants.ErrNoBaseURL)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" ||
		(u.Scheme != constants.HTTPScheme && u.Scheme != constants.HTTPSecureScheme) {
		return fmt.Errorf("%w: base url %q is not an http or https url", constants.ErrConfiguration, c.BaseURL)
	}
	if c.APIPattern == "" {
		return fmt.Errorf("%w: %w", constants.ErrConfiguration, constants.ErrNoAPIPattern)
	}
	switch c.SessionStore {
	case StoreMemory, StoreFile, StoreBadger:
	default:
		return fmt.Errorf("%w: unknown session store %q", constants.ErrConfiguration, c.SessionStore)
	}
	switch c.LogFormat {
	case FormatJSON, FormatText, FormatConsole:
	default:
		return fmt.Errorf("%w: unknown log format %q", constants.ErrConfiguration, c.LogFormat)
	}
	if c.Timeout < 0 || c.DummyDelay < 0 {
		return fmt.Errorf("%w: durations must not be negative", constants.ErrConfiguration)
	}
	return nil
}

// SessionLocation is the file or directory of the persistent session store, defaulting to the
// XDG state directory.
func (c *Config) SessionLocation() (string, error) {
	if c.SessionPath != "" {
		return c.SessionPath, nil
	}
	switch c.SessionStore {
	case StoreFile:
		return session.DefaultFilePath()
	case StoreBadger:
		return xdg.StateFile("dealerdesk/session.badger")
	default:
		return "", nil
	}
}

// OpenStore opens the configured session store. The returned closer releases it.
func (c *Config) OpenStore() (session.Store, io.Closer, error) {
	switch c.SessionStore {
	case StoreMemory:
		return session.NewMemoryStore(), nopCloser{}, nil
	case StoreFile:
		path, err := c.SessionLocation()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: session path: %v", constants.ErrConfiguration, err)
		}
		return session.NewFileStore(path), nopCloser{}, nil
	case StoreBadger:
		dir, err := c.SessionLocation()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: session path: %v", constants.ErrConfiguration, err)
		}
		store, err := session.OpenBadgerStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session store %q", constants.ErrConfiguration, c.SessionStore)
	}
}

// NewLogger builds the configured logger writing to w, stderr when nil.
func (c *Config) NewLogger(w io.Writer) logger.Logger {
	if w == nil {
		w = os.Stderr
	}
	switch c.LogFormat {
	case FormatConsole:
		l, err := logger.NewBuild().FromBuffer(w).Level(c.LogLevel).Console().Make()
		if err != nil {
			return logger.NewZerolog(w, c.LogLevel)
		}
		return l
	case FormatText:
		return logger.NewText(w, c.LogLevel)
	default:
		return logger.NewJSON(w, c.LogLevel)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
