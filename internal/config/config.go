// Package config loads service settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fhdsa/eventbridge/internal/routing"
)

// Configuration validation errors.
var (
	ErrMissingListenAddr    = errors.New("server.listen_addr is required")
	ErrInvalidSyncInterval  = errors.New("sync.interval must be at least 1m")
	ErrInvalidPageSize      = errors.New("sync.page_size must be between 1 and 100")
	ErrInvalidHTTPTimeout   = errors.New("sync.http_timeout must be positive")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging.format must be 'json' or 'console'")
	ErrInvalidRouteTag      = errors.New("route tags must start with '#'")
	ErrDuplicateRouteTag    = errors.New("route tags must be unique")
	ErrInvalidSubcalendarID = errors.New("teamup sub-calendar ids must be numeric")
)

// Config represents the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Sync          SyncConfig          `yaml:"sync"`
	Logging       LoggingConfig       `yaml:"logging"`
	ActionNetwork ActionNetworkConfig `yaml:"action_network"`
	Google        GoogleConfig        `yaml:"google"`
	Discord       DiscordConfig       `yaml:"discord"`
	TeamUp        TeamUpConfig        `yaml:"teamup"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// SyncConfig controls the reconciliation schedule.
type SyncConfig struct {
	Interval    time.Duration `yaml:"interval"`
	OnStart     bool          `yaml:"on_start"`
	PageSize    int           `yaml:"page_size"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ActionNetworkConfig holds source API settings.
type ActionNetworkConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GoogleConfig holds Google Calendar settings. An empty DefaultCalendar
// falls back to the #dsa calendar.
type GoogleConfig struct {
	ServiceAccountJSON string          `yaml:"service_account_json"`
	DefaultCalendar    string          `yaml:"default_calendar"`
	Routes             []routing.Route `yaml:"routes"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	BaseURL  string `yaml:"base_url"`
	BotToken string `yaml:"bot_token"`
	GuildID  string `yaml:"guild_id"`
}

// TeamUpConfig holds TeamUp settings.
type TeamUpConfig struct {
	BaseURL            string          `yaml:"base_url"`
	APIKey             string          `yaml:"api_key"`
	CalendarKey        string          `yaml:"calendar_key"`
	DefaultSubcalendar string          `yaml:"default_subcalendar"`
	Routes             []routing.Route `yaml:"routes"`
}

// routeEnv binds a hashtag to the variable holding its destination id.
type routeEnv struct {
	tag  string
	name string
	env  string
}

var googleRouteEnv = []routeEnv{
	{"#dsa", "Flint Hills Chapter DSA", "GOOGLE_DSA_CALENDAR_ID"},
	{"#action", "Direct Action", "GOOGLE_DIRECT_ACTION_CALENDAR_ID"},
	{"#education", "Education", "GOOGLE_EDUCATION_CALENDAR_ID"},
	{"#outreach", "Outreach", "GOOGLE_OUTREACH_CALENDAR_ID"},
	{"#social", "Socials", "GOOGLE_SOCIALS_CALENDAR_ID"},
	{"#steering", "Steering Committee", "GOOGLE_STEERING_CALENDAR_ID"},
	{"#volunteer", "Volunteering and Mutual Aid", "GOOGLE_VOLUNTEERING_CALENDAR_ID"},
}

var teamUpRouteEnv = []routeEnv{
	{"#meetings", "Meetings", "TEAMUP_MEETINGS_SUBCALENDAR_ID"},
	{"#outreach", "Outreach", "TEAMUP_OUTREACH_SUBCALENDAR_ID"},
	{"#education", "Education", "TEAMUP_EDUCATION_SUBCALENDAR_ID"},
	{"#social", "Social", "TEAMUP_SOCIAL_SUBCALENDAR_ID"},
	{"#civic", "Civic Engagement", "TEAMUP_CIVIC_SUBCALENDAR_ID"},
}

// GoogleDefaultTag is the route whose calendar catches untagged events.
const GoogleDefaultTag = "#dsa"

func routesFor(specs []routeEnv) []routing.Route {
	routes := make([]routing.Route, len(specs))
	for i, s := range specs {
		routes[i] = routing.Route{Tag: s.tag, Name: s.name}
	}
	return routes
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:         ":5000",
			CORSAllowedOrigins: []string{"*"},
			ShutdownTimeout:    30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:    30 * time.Minute,
			OnStart:     true,
			PageSize:    25,
			HTTPTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Google: GoogleConfig{
			Routes: routesFor(googleRouteEnv),
		},
		TeamUp: TeamUpConfig{
			Routes: routesFor(teamUpRouteEnv),
		},
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the optional YAML file at path, applies the process environment
// and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.ListenAddr = ":" + v
	}
	str("LISTEN_ADDR", &c.Server.ListenAddr)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.CORSAllowedOrigins = splitList(v)
	}

	if v, ok := lookup("SYNC_INTERVAL"); ok && v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("SYNC_INTERVAL: %w", err)
		}
		c.Sync.Interval = d
	}
	if v, ok := lookup("SYNC_ON_START"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SYNC_ON_START: %w", err)
		}
		c.Sync.OnStart = b
	}

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	str("ACTION_NETWORK_API_KEY", &c.ActionNetwork.APIKey)
	str("ACTION_NETWORK_BASE_URL", &c.ActionNetwork.BaseURL)

	str("GOOGLE_SERVICE_ACCOUNT_JSON", &c.Google.ServiceAccountJSON)
	applyRouteEnv(c.Google.Routes, googleRouteEnv, lookup)

	str("DISCORD_BOT_TOKEN", &c.Discord.BotToken)
	str("DISCORD_GUILD_ID", &c.Discord.GuildID)

	str("TEAMUP_API_KEY", &c.TeamUp.APIKey)
	str("TEAMUP_CALENDAR_KEY", &c.TeamUp.CalendarKey)
	str("TEAMUP_DEFAULT_SUBCALENDAR_ID", &c.TeamUp.DefaultSubcalendar)
	applyRouteEnv(c.TeamUp.Routes, teamUpRouteEnv, lookup)

	return nil
}

// applyRouteEnv fills route targets from their variables, matching by tag so
// a YAML file may reorder or drop routes.
func applyRouteEnv(routes []routing.Route, specs []routeEnv, lookup LookupFunc) {
	for _, s := range specs {
		v, ok := lookup(s.env)
		if !ok || v == "" {
			continue
		}
		for i := range routes {
			if strings.EqualFold(routes[i].Tag, s.tag) {
				routes[i].Target = v
			}
		}
	}
}

func (c *Config) finalize() {
	if c.Google.DefaultCalendar == "" {
		for _, r := range c.Google.Routes {
			if strings.EqualFold(r.Tag, GoogleDefaultTag) {
				c.Google.DefaultCalendar = r.Target
			}
		}
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

// parseInterval accepts a Go duration ("30m") or a bare number of minutes.
func parseInterval(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors. Missing platform credentials
// are not errors; that platform is simply not configured.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	if c.Sync.Interval < time.Minute {
		return ErrInvalidSyncInterval
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 100 {
		return ErrInvalidPageSize
	}
	if c.Sync.HTTPTimeout <= 0 {
		return ErrInvalidHTTPTimeout
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return ErrInvalidLogFormat
	}

	if err := validateRoutes("google", c.Google.Routes); err != nil {
		return err
	}
	if err := validateRoutes("teamup", c.TeamUp.Routes); err != nil {
		return err
	}

	subcalendars := []string{c.TeamUp.DefaultSubcalendar}
	for _, r := range c.TeamUp.Routes {
		subcalendars = append(subcalendars, r.Target)
	}
	for _, id := range subcalendars {
		if id == "" {
			continue
		}
		if _, err := strconv.Atoi(id); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSubcalendarID, id)
		}
	}
	return nil
}

func validateRoutes(platform string, routes []routing.Route) error {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		tag := strings.ToLower(strings.TrimSpace(r.Tag))
		if !strings.HasPrefix(tag, "#") {
			return fmt.Errorf("%s: %w: %q", platform, ErrInvalidRouteTag, r.Tag)
		}
		if seen[tag] {
			return fmt.Errorf("%s: %w: %q", platform, ErrDuplicateRouteTag, r.Tag)
		}
		seen[tag] = true
	}
	return nil
}

// GoogleResolver builds the calendar routing table.
func (c *Config) GoogleResolver() *routing.Resolver {
	return routing.NewResolver(c.Google.Routes, c.Google.DefaultCalendar, c.defaultGoogleName())
}

func (c *Config) defaultGoogleName() string {
	for _, r := range c.Google.Routes {
		if r.Target != "" && r.Target == c.Google.DefaultCalendar {
			return r.Name
		}
	}
	return "Default"
}

// TeamUpResolver builds the sub-calendar routing table.
func (c *Config) TeamUpResolver() *routing.Resolver {
	return routing.NewResolver(c.TeamUp.Routes, c.TeamUp.DefaultSubcalendar, "Default")
}
