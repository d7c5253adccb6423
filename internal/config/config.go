package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/downwatch/internal/maintenance"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Target      TargetConfig      `yaml:"target"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Slack       SlackConfig       `yaml:"slack"`
	State       StateConfig       `yaml:"state"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Debug       DebugConfig       `yaml:"debug"`

	Window   maintenance.Window `yaml:"-"` // parsed from Maintenance
	Location *time.Location     `yaml:"-"` // parsed from Maintenance.Timezone
}

type TargetConfig struct {
	URL          string        `yaml:"url"`
	DisplayName  string        `yaml:"display_name"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	UserAgent    string        `yaml:"user_agent"`
}

type AlertingConfig struct {
	AlertAfter       time.Duration `yaml:"alert_after"`
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	DownHTTPStatus   int           `yaml:"down_http_status"`
}

type MaintenanceConfig struct {
	Start    string `yaml:"start"`    // HH:MM
	End      string `yaml:"end"`      // HH:MM
	Timezone string `yaml:"timezone"` // IANA name or "Local"
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"` // prefer DOWNWATCH_TELEGRAM_TOKEN
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type StateConfig struct {
	Driver      string        `yaml:"driver"`
	Path        string        `yaml:"path"`
	DatabaseURL string        `yaml:"database_url"`
	MonitorID   string        `yaml:"monitor_id"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	PublicAPIKeys    []string      `yaml:"public_api_keys"`
	AdminAPIKeys     []string      `yaml:"admin_api_keys"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	RatePerMinute    int           `yaml:"rate_per_minute"`
	Burst            int           `yaml:"burst"`
	CycleTimeout     time.Duration `yaml:"cycle_timeout"`
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type DebugConfig struct {
	Always     bool  `yaml:"always"`
	AllowQuery *bool `yaml:"allow_query"`
}

// QueryAllowed reports whether ?debug=1 may switch on diagnostic mode.
func (d DebugConfig) QueryAllowed() bool {
	return d.AllowQuery == nil || *d.AllowQuery
}

// Defaults returns the configuration used before the file and env are applied.
func Defaults() Config {
	return Config{
		Target: TargetConfig{
			Timeout:      10 * time.Second,
			MaxRedirects: 3,
			UserAgent:    "downwatch/1.0",
		},
		Alerting: AlertingConfig{
			AlertAfter:       120 * time.Second,
			ReminderInterval: 300 * time.Second,
			DownHTTPStatus:   200,
		},
		Maintenance: MaintenanceConfig{
			Start:    "04:20",
			End:      "04:25",
			Timezone: "Local",
		},
		Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		State: StateConfig{
			Driver:      DriverFile,
			Path:        "monitor_state.json",
			MonitorID:   "default",
			LockTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8080",
			RatePerMinute: 120,
			Burst:         60,
			CycleTimeout:  60 * time.Second,
		},
		Log: LogConfig{Dir: "logs", Level: "info"},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, then validates and derives parsed fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML from %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv is Load without a file.
func FromEnv() (*Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	seconds := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = time.Duration(n) * time.Second
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("DOWNWATCH_TARGET_URL", &cfg.Target.URL)
	str("DOWNWATCH_DISPLAY_NAME", &cfg.Target.DisplayName)
	seconds("DOWNWATCH_TIMEOUT_SECONDS", &cfg.Target.Timeout)

	seconds("DOWNWATCH_ALERT_AFTER_SECONDS", &cfg.Alerting.AlertAfter)
	seconds("DOWNWATCH_REMINDER_INTERVAL_SECONDS", &cfg.Alerting.ReminderInterval)
	integer("DOWNWATCH_DOWN_HTTP_STATUS", &cfg.Alerting.DownHTTPStatus)

	str("DOWNWATCH_MAINTENANCE_START", &cfg.Maintenance.Start)
	str("DOWNWATCH_MAINTENANCE_END", &cfg.Maintenance.End)
	str("DOWNWATCH_TIMEZONE", &cfg.Maintenance.Timezone)

	str("DOWNWATCH_TELEGRAM_TOKEN", &cfg.Telegram.BotToken)
	str("DOWNWATCH_TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("SLACK_WEBHOOK_URL", &cfg.Slack.WebhookURL)

	str("DOWNWATCH_STATE_DRIVER", &cfg.State.Driver)
	str("DOWNWATCH_STATE_PATH", &cfg.State.Path)
	str("DATABASE_URL", &cfg.State.DatabaseURL)

	str("API_ADDR", &cfg.Server.Addr)
	list("PUBLIC_API_KEYS", &cfg.Server.PublicAPIKeys)
	list("ADMIN_API_KEYS", &cfg.Server.AdminAPIKeys)
	list("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	integer("CHECK_RPM", &cfg.Server.RatePerMinute)
	integer("CHECK_BURST", &cfg.Server.Burst)
	if v := os.Getenv("DOWNWATCH_SCHEDULE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Server.ScheduleInterval = d
		}
	}

	str("LOG_DIR", &cfg.Log.Dir)
	str("LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("DOWNWATCH_DEBUG_ALWAYS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug.Always = b
		}
	}
}

func (c *Config) finalize() error {
	var errs error

	c.Target.URL = strings.TrimSpace(c.Target.URL)
	if !isValidHTTPURL(c.Target.URL) {
		errs = multierr.Append(errs, fmt.Errorf("target.url %q must be an absolute http(s) URL", c.Target.URL))
	}
	if c.Target.DisplayName == "" {
		c.Target.DisplayName = defaultDisplayName(c.Target.URL)
	}
	if c.Target.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("target.timeout must be positive"))
	}
	if c.Target.MaxRedirects < 0 {
		errs = multierr.Append(errs, errors.New("target.max_redirects must be >= 0"))
	}

	if c.Alerting.AlertAfter < 0 {
		errs = multierr.Append(errs, errors.New("alerting.alert_after must be >= 0"))
	}
	if c.Alerting.ReminderInterval < 0 {
		errs = multierr.Append(errs, errors.New("alerting.reminder_interval must be >= 0"))
	}
	// out-of-range codes fall back to 200 instead of failing
	if c.Alerting.DownHTTPStatus < 100 || c.Alerting.DownHTTPStatus > 599 {
		c.Alerting.DownHTTPStatus = 200
	}

	w, err := maintenance.ParseWindow(c.Maintenance.Start, c.Maintenance.End)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	c.Window = w
	loc, err := loadLocation(c.Maintenance.Timezone)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("maintenance.timezone: %w", err))
	}
	c.Location = loc

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = multierr.Append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}

	c.State.Driver = strings.ToLower(strings.TrimSpace(c.State.Driver))
	switch c.State.Driver {
	case DriverFile:
		if c.State.Path == "" {
			errs = multierr.Append(errs, errors.New("state.path is required for the file driver"))
		}
	case DriverPostgres:
		if c.State.DatabaseURL == "" {
			errs = multierr.Append(errs, errors.New("state.database_url is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = multierr.Append(errs, fmt.Errorf("state.driver %q must be one of file, postgres, memory", c.State.Driver))
	}
	if c.State.MonitorID == "" {
		c.State.MonitorID = "default"
	}

	if c.Server.CycleTimeout <= 0 {
		c.Server.CycleTimeout = 60 * time.Second
	}
	if c.Server.ScheduleInterval < 0 {
		errs = multierr.Append(errs, errors.New("server.schedule_interval must be >= 0"))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, errs)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func isValidHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// defaultDisplayName is the URL host, or "service" when there is none.
func defaultDisplayName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "service"
	}
	return u.Hostname()
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
