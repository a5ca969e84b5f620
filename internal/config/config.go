// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/forca-proxy/config.toml",
	"configs/config.toml",
}

// reservedRoutes are the route prefixes the metrics endpoint must not shadow.
var reservedRoutes = []string{"/api/proxy", "/static", "/healthz", "/proxy/status"}

func init() {
	// Report validation failures with the TOML key names.
	validation.ErrorTag = "toml"
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config     string           `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host       string           `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port       int              `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	BackendURL string           `kong:"name='backend-url',help='Backend base URL, e.g. http://localhost:8080 (overrides config).',env='BACKEND_URL'"`
	LogLevel   string           `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	Version    kong.VersionFlag `kong:"help='Print version and exit.'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Landing LandingConfig `toml:"landing"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (5000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// BackendConfig describes the single backend origin requests are forwarded to.
type BackendConfig struct {
	BaseURL         string `toml:"base_url"`
	APIPath         string `toml:"api_path"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// Timeout returns the bounded time allowed for one backend call.
func (b *BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// LandingConfig holds landing page settings.
type LandingConfig struct {
	// LocalIP overrides the detected local network address shown on the page.
	LocalIP string `toml:"local_ip"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/forca-proxy/config.toml then configs/config.toml; if neither exists the
// built-in defaults are used.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BackendURL != "" {
		c.Backend.BaseURL = cli.BackendURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

func (c *Config) validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Server.BodyMaxBytes, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	rl := &c.Server.RateLimit
	if err := validation.ValidateStruct(rl,
		validation.Field(&rl.RequestsPerSecond,
			validation.When(rl.Enabled,
				validation.Required.Error("must be > 0 when rate limiting is enabled"),
				validation.Min(0.0).Exclusive(),
			),
		),
	); err != nil {
		return fmt.Errorf("server.rate_limit: %w", err)
	}

	if err := validation.ValidateStruct(&c.Backend,
		validation.Field(&c.Backend.BaseURL, is.URL, validation.By(httpOrigin)),
		validation.Field(&c.Backend.APIPath, validation.By(leadingSlash)),
		validation.Field(&c.Backend.TimeoutSeconds, validation.Min(0)),
		validation.Field(&c.Backend.IdleConnections, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	if err := validation.ValidateStruct(&c.Landing,
		validation.Field(&c.Landing.LocalIP, is.IP),
	); err != nil {
		return fmt.Errorf("landing: %w", err)
	}

	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.In("json", "text")),
		validation.Field(&c.Log.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.Log.MaxBackups, validation.Min(0)),
		validation.Field(&c.Log.MaxAgeDays, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled {
		if err := validation.Validate(c.Metrics.Path, validation.By(metricsPath)); err != nil {
			return fmt.Errorf("metrics.path: %w", err)
		}
	}

	return nil
}

// httpOrigin requires an absolute http(s) URL with a host.
func httpOrigin(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", fmt.Sprintf("must use http or https; got %q", s))
	}
	if u.Host == "" {
		return validation.NewError("validation_missing_host", "must include a host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return validation.NewError("validation_invalid_origin", "must not carry a query or fragment")
	}
	return nil
}

func leadingSlash(value any) error {
	s, _ := value.(string)
	if s != "" && s[0] != '/' {
		return validation.NewError("validation_leading_slash", fmt.Sprintf("must start with '/'; got %q", s))
	}
	return nil
}

func metricsPath(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if err := leadingSlash(p); err != nil {
		return err
	}
	if p == "/" {
		return errors.New("conflicts with the landing page route \"/\"")
	}
	for _, reserved := range reservedRoutes {
		if p == reserved || strings.HasPrefix(p, reserved+"/") {
			return fmt.Errorf("%q conflicts with reserved route %q", p, reserved)
		}
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1 << 20 // 1 MiB
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8080"
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.APIPath == "" {
		c.Backend.APIPath = "/api"
	}
	c.Backend.APIPath = strings.TrimRight(c.Backend.APIPath, "/")
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 8
	}
	if c.Backend.IdleConnections == 0 {
		c.Backend.IdleConnections = 32
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FilePath returns the config file that was loaded, or "" when running on defaults.
func (c *Config) FilePath() string {
	return c.filePath
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
