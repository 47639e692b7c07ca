package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envNames {
		t.Setenv(env, "")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, TransportStdio, cfg.ResolvedTransport())
	assert.Equal(t, ":8000", cfg.ListenAddr())
	assert.False(t, cfg.Authenticated())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIMETRICS_API_URL", "http://localhost:8001/api")
	t.Setenv("DIMETRICS_API_KEY", "abc123")
	t.Setenv("DIMETRICS_TIMEOUT", "45")
	t.Setenv("PORT", "9000")
	t.Setenv("DIMETRICS_LOG_LEVEL", "DEBUG")
	t.Setenv("DIMETRICS_RATE_LIMIT", "2.5")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8001/api", cfg.APIURL)
	assert.Equal(t, "abc123", cfg.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, TransportHTTP, cfg.ResolvedTransport())
	assert.Equal(t, ":9000", cfg.ListenAddr())
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.True(t, cfg.Authenticated())
}

func TestLoad_EnvFileBelowEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "DIMETRICS_API_KEY=from-file\nDIMETRICS_SESSION_COOKIE=sessionid=xyz\nMCP_TRANSPORT=http\n")
	t.Setenv("DIMETRICS_API_KEY", "from-env")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "sessionid=xyz", cfg.SessionCookie)
	assert.Equal(t, TransportHTTP, cfg.ResolvedTransport())
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.env")).Load()
	assert.NoError(t, err)
}

func TestLoad_FlagsWin(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIMETRICS_API_URL", "http://env/api")
	t.Setenv("MCP_TRANSPORT", "stdio")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.String("transport", "", "")
	flags.Duration("timeout", DefaultTimeout, "")
	require.NoError(t, flags.Parse([]string{"--api-url=http://flag/api", "--timeout=5s"}))

	l := NewLoader("")
	require.NoError(t, l.BindFlags(flags))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://flag/api", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, TransportStdio, cfg.Transport)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{name: "timeout", env: map[string]string{"DIMETRICS_TIMEOUT": "soon"}, msg: "invalid timeout"},
		{name: "negative timeout", env: map[string]string{"DIMETRICS_TIMEOUT": "-1s"}, msg: "timeout must be positive"},
		{name: "port", env: map[string]string{"PORT": "http"}, msg: "invalid port"},
		{name: "port range", env: map[string]string{"PORT": "70000"}, msg: "port out of range"},
		{name: "transport", env: map[string]string{"MCP_TRANSPORT": "sse"}, msg: "transport must be"},
		{name: "log level", env: map[string]string{"DIMETRICS_LOG_LEVEL": "loud"}, msg: "invalid log level"},
		{name: "rate limit", env: map[string]string{"DIMETRICS_RATE_LIMIT": "fast"}, msg: "invalid rate limit"},
		{name: "negative rate limit", env: map[string]string{"DIMETRICS_RATE_LIMIT": "-3"}, msg: "rate limit must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewLoader("").Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "", want: DefaultTimeout},
		{in: "30", want: 30 * time.Second},
		{in: "1.5", want: 1500 * time.Millisecond},
		{in: "2m", want: 2 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseTimeout(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
