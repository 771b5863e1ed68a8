package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 25, cfg.Sync.PageSize)
	assert.Len(t, cfg.Google.Routes, 7)
	assert.Len(t, cfg.TeamUp.Routes, 5)
	assert.Equal(t, "#dsa", cfg.Google.Routes[0].Tag)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	cfg, err := LoadWithEnv("", env(map[string]string{
		"PORT":                          "8080",
		"SYNC_INTERVAL":                 "15",
		"SYNC_ON_START":                 "false",
		"LOG_LEVEL":                     "DEBUG",
		"CORS_ALLOWED_ORIGINS":          "https://a.example, https://b.example",
		"ACTION_NETWORK_API_KEY":        "an-key",
		"DISCORD_BOT_TOKEN":             "bot",
		"DISCORD_GUILD_ID":              "42",
		"GOOGLE_DSA_CALENDAR_ID":        "dsa@group",
		"GOOGLE_OUTREACH_CALENDAR_ID":   "outreach@group",
		"TEAMUP_API_KEY":                "tu",
		"TEAMUP_CALENDAR_KEY":           "ks1",
		"TEAMUP_CIVIC_SUBCALENDAR_ID":   "555",
		"TEAMUP_DEFAULT_SUBCALENDAR_ID": "999",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.False(t, cfg.Sync.OnStart)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "an-key", cfg.ActionNetwork.APIKey)
	assert.Equal(t, "42", cfg.Discord.GuildID)
	assert.Equal(t, "dsa@group", cfg.Google.DefaultCalendar)

	tag, target := cfg.GoogleResolver().Resolve("Join us #outreach for canvassing")
	assert.Equal(t, "#outreach", tag)
	assert.Equal(t, "outreach@group", target)

	// #education has no calendar configured, so the default wins.
	_, target = cfg.GoogleResolver().Resolve("Reading group #education")
	assert.Equal(t, "dsa@group", target)
	assert.Equal(t, "Flint Hills Chapter DSA", cfg.GoogleResolver().NameFor("dsa@group"))

	_, sub := cfg.TeamUpResolver().Resolve("Town hall #civic")
	assert.Equal(t, "555", sub)
	_, sub = cfg.TeamUpResolver().Resolve("nothing")
	assert.Equal(t, "999", sub)
}

func TestLoadWithEnv_ListenAddrBeatsPort(t *testing.T) {
	cfg, err := LoadWithEnv("", env(map[string]string{"PORT": "8080", "LISTEN_ADDR": "127.0.0.1:9000"}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
}

func TestLoadWithEnv_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":7000"
sync:
  interval: 45m
  page_size: 50
logging:
  format: console
google:
  default_calendar: main@group
  routes:
    - tag: "#action"
      name: Direct Action
      target: action@group
`), 0o600))

	cfg, err := LoadWithEnv(path, env(map[string]string{"GOOGLE_DIRECT_ACTION_CALENDAR_ID": "override@group"}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.ListenAddr)
	assert.Equal(t, 45*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Sync.PageSize)
	assert.Equal(t, "console", cfg.Logging.Format)
	require.Len(t, cfg.Google.Routes, 1)
	assert.Equal(t, "override@group", cfg.Google.Routes[0].Target)
	assert.Equal(t, "main@group", cfg.Google.DefaultCalendar)
}

func TestLoadWithEnv_Errors(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.Error(t, err)

	_, err = LoadWithEnv("", env(map[string]string{"SYNC_INTERVAL": "soon"}))
	assert.Error(t, err)

	_, err = LoadWithEnv("", env(map[string]string{"SYNC_ON_START": "maybe"}))
	assert.Error(t, err)

	_, err = LoadWithEnv("", env(map[string]string{"TEAMUP_MEETINGS_SUBCALENDAR_ID": "abc"}))
	assert.ErrorIs(t, err, ErrInvalidSubcalendarID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing listen addr", func(c *Config) { c.Server.ListenAddr = "" }, ErrMissingListenAddr},
		{"interval too short", func(c *Config) { c.Sync.Interval = 10 * time.Second }, ErrInvalidSyncInterval},
		{"page size zero", func(c *Config) { c.Sync.PageSize = 0 }, ErrInvalidPageSize},
		{"page size too large", func(c *Config) { c.Sync.PageSize = 500 }, ErrInvalidPageSize},
		{"timeout", func(c *Config) { c.Sync.HTTPTimeout = 0 }, ErrInvalidHTTPTimeout},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"tag without hash", func(c *Config) { c.Google.Routes[0].Tag = "dsa" }, ErrInvalidRouteTag},
		{"duplicate tag", func(c *Config) { c.TeamUp.Routes[1].Tag = "#meetings" }, ErrDuplicateRouteTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
