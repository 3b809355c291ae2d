package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Peer-left policies. PolicyNotify only shows a toast when the other
// participant leaves; PolicyComplete also ends the consultation.
const (
	PolicyNotify   = "notify"
	PolicyComplete = "complete"
)

// WebSocketConfig holds WebSocket-specific configuration
type WebSocketConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // Timeout for writing messages to WebSocket
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // Timeout for reading messages from WebSocket (keepalive)
	PingInterval time.Duration `mapstructure:"ping_interval"` // Interval for sending ping messages
	QueueSize    int           `mapstructure:"queue_size"`    // Per-connection outbound event queue
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Config struct {
	// Server configuration
	HTTPAddr string `mapstructure:"http_addr"`

	Log LogConfig `mapstructure:"log"`

	// Backend meeting service
	BackendURL     string        `mapstructure:"backend_url"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`

	// Video widget
	VideoDomain        string        `mapstructure:"video_domain"`
	WidgetReadyTimeout time.Duration `mapstructure:"widget_ready_timeout"`
	PeerLeftPolicy     string        `mapstructure:"peer_left_policy"`

	// WebSocket configuration
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("backend_url", "http://localhost:5000")
	v.SetDefault("backend_timeout", 10*time.Second)
	v.SetDefault("video_domain", "meet.jit.si")
	v.SetDefault("widget_ready_timeout", 30*time.Second)
	v.SetDefault("peer_left_policy", PolicyNotify)
	v.SetDefault("websocket.write_timeout", 5*time.Second)
	v.SetDefault("websocket.read_timeout", 3*time.Minute)
	v.SetDefault("websocket.ping_interval", 60*time.Second)
	v.SetDefault("websocket.queue_size", 256)
}

// Load builds the configuration from defaults, an optional YAML file,
// environment variables and command line flags, in increasing precedence.
// Environment variables use the upper-cased key with dots replaced by
// underscores, e.g. WEBSOCKET_WRITE_TIMEOUT or LOG_LEVEL. Durations accept Go
// duration strings ("5s", "3m").
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configFile := fs.String("config", "", "Path to a YAML configuration file")
	fs.String("http", ":8080", "HTTP server address")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Optional log file, rotated by size")
	fs.String("backend-url", "http://localhost:5000", "Base URL of the backend meeting service")
	fs.Duration("backend-timeout", 10*time.Second, "Timeout for backend meeting service requests")
	fs.String("video-domain", "meet.jit.si", "Domain of the hosted video service")
	fs.Duration("widget-ready-timeout", 30*time.Second, "How long to wait for the page to instantiate the widget")
	fs.String("peer-left-policy", PolicyNotify, "What to do when the other participant leaves (notify, complete)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	bindings := map[string]string{
		"http_addr":            "http",
		"log.level":            "log-level",
		"log.file":             "log-file",
		"backend_url":          "backend-url",
		"backend_timeout":      "backend-timeout",
		"video_domain":         "video-domain",
		"widget_ready_timeout": "widget-ready-timeout",
		"peer_left_policy":     "peer-left-policy",
	}
	for key, flagName := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flagName, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", *configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.PeerLeftPolicy = strings.ToLower(strings.TrimSpace(cfg.PeerLeftPolicy))
	cfg.BackendURL = strings.TrimSuffix(cfg.BackendURL, "/")

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return ErrMissingBackendURL
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBackendURL, c.BackendURL)
	}
	if c.VideoDomain == "" {
		return ErrMissingVideoDomain
	}
	if c.PeerLeftPolicy != PolicyNotify && c.PeerLeftPolicy != PolicyComplete {
		return fmt.Errorf("%w: %q", ErrInvalidPeerLeftPolicy, c.PeerLeftPolicy)
	}
	if c.WidgetReadyTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
