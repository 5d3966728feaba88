package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHost         = "0.0.0.0"
	DefaultHTTPPort     = 8000
	DefaultLogLevel     = "info"
	DefaultWriteTimeout = 10 * time.Second
	DefaultSendBuffer   = 16
	DefaultLibraryDir   = "static"
)

// DefaultExclude lists directory names hidden from the library by default.
var DefaultExclude = []string{"unreachable"}

// Environment variables that override file values.
const (
	EnvHost       = "CUEBOARD_HOST"
	EnvHTTPPort   = "CUEBOARD_HTTP_PORT"
	EnvLibraryDir = "CUEBOARD_LIBRARY_DIR"
	EnvLogLevel   = "CUEBOARD_LOG_LEVEL"
)

// Config is the full configuration tree parsed from cueboard.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Library LibraryConfig `yaml:"library"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig holds the HTTP and WebSocket settings.
type ServerConfig struct {
	// Host is the interface to bind (default 0.0.0.0).
	Host string `yaml:"host"`

	// HTTPPort serves pages, the API and the WebSocket endpoint (default 8000).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// WriteTimeout bounds a single WebSocket write. A client that cannot
	// take a message within this time is dropped.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SendBuffer is the per-client outgoing message queue depth.
	SendBuffer int `yaml:"send_buffer"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
}

// Level returns LogLevel as a slog.Level.
func (s ServerConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LibraryConfig describes the shared directory of selectable files.
type LibraryConfig struct {
	// Dir is the directory served under /static and listed on the manager page.
	Dir string `yaml:"dir"`

	// Exclude lists directory names that are never listed or served.
	Exclude []string `yaml:"exclude"`

	// Watch enables fsnotify-driven refresh of the file list.
	Watch bool `yaml:"watch"`
}

// NotifyConfig holds webhook targets announcing selection changes.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Defaults are applied
// first, then the file, then environment overrides, then validation.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			HTTPPort:     DefaultHTTPPort,
			LogLevel:     DefaultLogLevel,
			WriteTimeout: DefaultWriteTimeout,
			SendBuffer:   DefaultSendBuffer,
		},
		Library: LibraryConfig{
			Dir:     DefaultLibraryDir,
			Exclude: append([]string(nil), DefaultExclude...),
			Watch:   true,
		},
	}
}

// applyEnv overrides file values with CUEBOARD_* environment variables.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvHost); ok {
		cfg.Server.Host = v
	}
	if v, ok := os.LookupEnv(EnvHTTPPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s=%q is not a number", EnvHTTPPort, v)
		}
		cfg.Server.HTTPPort = port
	}
	if v, ok := os.LookupEnv(EnvLibraryDir); ok {
		cfg.Library.Dir = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Server.LogLevel = v
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if cfg.Server.SendBuffer <= 0 {
		return fmt.Errorf("server.send_buffer must be positive")
	}
	if cfg.Library.Dir == "" {
		return fmt.Errorf("library.dir is required")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d].type %q unknown: want slack|http", i, wh.Type)
		}
	}
	return nil
}
