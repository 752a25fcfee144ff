package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// Config holds live view configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	Title             string        `mapstructure:"title" yaml:"title"`

	// Upstream feed.
	FeedURL        string        `mapstructure:"feed_url" yaml:"feed_url"`
	RedialInterval time.Duration `mapstructure:"redial_interval" yaml:"redial_interval"`
	MaxFrameBytes  int64         `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	MaxTextChars   int           `mapstructure:"max_text_chars" yaml:"max_text_chars"`

	// Rendering. An empty ChannelPattern shows every channel.
	RowSize        int    `mapstructure:"row_size" yaml:"row_size"`
	MaxMessages    int    `mapstructure:"max_messages" yaml:"max_messages"`
	ChannelPattern string `mapstructure:"channel_pattern" yaml:"channel_pattern"`
	SortByActivity bool   `mapstructure:"sort_by_activity" yaml:"sort_by_activity"`

	// Status change endpoint. StatusRateLimit caps submissions per minute.
	StatusURL       string        `mapstructure:"status_url" yaml:"status_url"`
	StatusSecret    string        `mapstructure:"status_secret" yaml:"status_secret"`
	StatusAudience  string        `mapstructure:"status_audience" yaml:"status_audience"`
	StatusTimeout   time.Duration `mapstructure:"status_timeout" yaml:"status_timeout"`
	StatusRateLimit int           `mapstructure:"status_rate_limit" yaml:"status_rate_limit"`

	Dev DevConfig `mapstructure:"dev" yaml:"dev"`
}

// DevConfig configures the development feed server.
type DevConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
	OkChannels  int           `mapstructure:"ok_channels" yaml:"ok_channels"`
	BadChannels int           `mapstructure:"bad_channels" yaml:"bad_channels"`
	Messages    int           `mapstructure:"messages" yaml:"messages"`
	MaxText     int           `mapstructure:"max_text" yaml:"max_text"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "figaro.db",
		Title:             "Figaro",
		FeedURL:           "ws://localhost:8090/feed",
		RedialInterval:    5 * time.Second,
		MaxFrameBytes:     1 << 20,
		MaxTextChars:      256,
		RowSize:           3,
		MaxMessages:       3,
		SortByActivity:    true,
		StatusURL:         "http://localhost:8090/backend/change_status/",
		StatusTimeout:     10 * time.Second,
		StatusRateLimit:   60,
		Dev: DevConfig{
			Addr:        ":8090",
			Delay:       3 * time.Second,
			OkChannels:  25,
			BadChannels: 25,
			Messages:    3,
			MaxText:     256,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.FeedURL != "" {
		c.FeedURL = other.FeedURL
	}
	if other.StatusURL != "" {
		c.StatusURL = other.StatusURL
	}
	if other.Dev.Addr != "" {
		c.Dev.Addr = other.Dev.Addr
	}
	if other.Dev.Delay != 0 {
		c.Dev.Delay = other.Dev.Delay
	}
}

// Validate checks the values needed by the live view.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if err := checkURL(c.FeedURL, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("feed_url: %w", err))
	}
	if c.StatusURL != "" {
		if err := checkURL(c.StatusURL, "http", "https"); err != nil {
			errs = append(errs, fmt.Errorf("status_url: %w", err))
		}
	}
	if c.RedialInterval < 0 {
		errs = append(errs, errors.New("redial_interval must not be negative"))
	}
	if c.MaxTextChars < 0 {
		errs = append(errs, errors.New("max_text_chars must not be negative"))
	}
	if c.RowSize < 0 {
		errs = append(errs, errors.New("row_size must not be negative"))
	}
	if c.MaxMessages < 0 {
		errs = append(errs, errors.New("max_messages must not be negative"))
	}
	if _, err := regexp.Compile(c.ChannelPattern); err != nil {
		errs = append(errs, fmt.Errorf("channel_pattern: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateDev checks the values needed by the development feed server.
func (c Config) ValidateDev() error {
	var errs []error
	if c.Dev.Addr == "" {
		errs = append(errs, errors.New("dev.addr is required"))
	}
	if c.Dev.Delay <= 0 {
		errs = append(errs, errors.New("dev.delay must be positive"))
	}
	if c.Dev.OkChannels < 0 || c.Dev.BadChannels < 0 {
		errs = append(errs, errors.New("dev channel counts must not be negative"))
	}
	if c.Dev.Messages < 0 {
		errs = append(errs, errors.New("dev.messages must not be negative"))
	}
	if c.Dev.MaxText <= 0 {
		errs = append(errs, errors.New("dev.max_text must be positive"))
	}
	return errors.Join(errs...)
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("expected %v URL, got %q", schemes, raw)
}
