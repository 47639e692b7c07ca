// Package config resolves server settings from flags, environment variables
// and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	DefaultAPIURL   = "https://app.dimetrics.io/api"
	DefaultTimeout  = 30 * time.Second
	DefaultHTTPPort = 8000
)

// Setting keys. Flags use the same names with dashes.
const (
	KeyAPIURL        = "api_url"
	KeyAPIKey        = "api_key"
	KeySessionCookie = "session_cookie"
	KeyTimeout       = "timeout"
	KeyTransport     = "transport"
	KeyPort          = "port"
	KeyLogLevel      = "log_level"
	KeyRateLimit     = "rate_limit"
)

// envNames maps setting keys to the environment variables that feed them.
var envNames = map[string]string{
	KeyAPIURL:        "DIMETRICS_API_URL",
	KeyAPIKey:        "DIMETRICS_API_KEY",
	KeySessionCookie: "DIMETRICS_SESSION_COOKIE",
	KeyTimeout:       "DIMETRICS_TIMEOUT",
	KeyTransport:     "MCP_TRANSPORT",
	KeyPort:          "PORT",
	KeyLogLevel:      "DIMETRICS_LOG_LEVEL",
	KeyRateLimit:     "DIMETRICS_RATE_LIMIT",
}

// Config holds resolved settings.
type Config struct {
	APIURL        string
	APIKey        string
	SessionCookie string
	Timeout       time.Duration
	// Transport is stdio or http. Empty resolves to http when Port is set.
	Transport string
	Port      int
	LogLevel  string
	// RateLimit caps backend requests per second; 0 means unlimited.
	RateLimit float64
}

// Loader reads settings through a viper instance.
type Loader struct {
	v       *viper.Viper
	envFile string
}

// NewLoader creates a Loader. envFile may be empty to skip .env loading.
func NewLoader(envFile string) *Loader {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyLogLevel, "info")
	for key, env := range envNames {
		// BindEnv only errors on an empty key list.
		_ = v.BindEnv(key, env)
	}
	return &Loader{v: v, envFile: envFile}
}

// BindFlags makes explicitly set flags override every other source.
// Flag names are the setting keys with underscores replaced by dashes.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for key := range envNames {
		name := strings.ReplaceAll(key, "_", "-")
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.readEnvFile(); err != nil {
		return nil, err
	}

	timeout, err := parseTimeout(l.v.GetString(KeyTimeout))
	if err != nil {
		return nil, err
	}
	port := 0
	if raw := strings.TrimSpace(l.v.GetString(KeyPort)); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", raw, err)
		}
	}

	rateLimit := 0.0
	if raw := strings.TrimSpace(l.v.GetString(KeyRateLimit)); raw != "" {
		rateLimit, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", raw, err)
		}
	}

	cfg := &Config{
		APIURL:        strings.TrimSpace(l.v.GetString(KeyAPIURL)),
		APIKey:        strings.TrimSpace(l.v.GetString(KeyAPIKey)),
		SessionCookie: strings.TrimSpace(l.v.GetString(KeySessionCookie)),
		Timeout:       timeout,
		Transport:     strings.ToLower(strings.TrimSpace(l.v.GetString(KeyTransport))),
		Port:          port,
		LogLevel:      strings.ToLower(strings.TrimSpace(l.v.GetString(KeyLogLevel))),
		RateLimit:     rateLimit,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnvFile layers .env values between the built-in defaults and the
// process environment. A missing file is not an error.
func (l *Loader) readEnvFile() error {
	if l.envFile == "" {
		return nil
	}
	fv := viper.New()
	fv.SetConfigFile(l.envFile)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", l.envFile, err)
	}
	for key, env := range envNames {
		name := strings.ToLower(env)
		if fv.IsSet(name) {
			l.v.SetDefault(key, fv.GetString(name))
		}
	}
	return nil
}

// parseTimeout accepts Go durations ("45s") and plain seconds ("45").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTimeout, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return d, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	switch c.Transport {
	case "", TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", c.RateLimit))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// ResolvedTransport returns the transport to run. A configured port without
// an explicit transport selects http.
func (c *Config) ResolvedTransport() string {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Port > 0 {
		return TransportHTTP
	}
	return TransportStdio
}

// ListenAddr returns the http listen address.
func (c *Config) ListenAddr() string {
	port := c.Port
	if port == 0 {
		port = DefaultHTTPPort
	}
	return fmt.Sprintf(":%d", port)
}

// Authenticated reports whether any credential is configured.
func (c *Config) Authenticated() bool {
	return c.APIKey != "" || c.SessionCookie != ""
}
