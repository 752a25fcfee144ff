package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "FIGARO_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("FIGARO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("title", cfg.Title)
	v.SetDefault("feed_url", cfg.FeedURL)
	v.SetDefault("redial_interval", cfg.RedialInterval)
	v.SetDefault("max_frame_bytes", cfg.MaxFrameBytes)
	v.SetDefault("max_text_chars", cfg.MaxTextChars)
	v.SetDefault("row_size", cfg.RowSize)
	v.SetDefault("max_messages", cfg.MaxMessages)
	v.SetDefault("channel_pattern", cfg.ChannelPattern)
	v.SetDefault("sort_by_activity", cfg.SortByActivity)
	v.SetDefault("status_url", cfg.StatusURL)
	v.SetDefault("status_secret", cfg.StatusSecret)
	v.SetDefault("status_audience", cfg.StatusAudience)
	v.SetDefault("status_timeout", cfg.StatusTimeout)
	v.SetDefault("status_rate_limit", cfg.StatusRateLimit)
	v.SetDefault("dev.addr", cfg.Dev.Addr)
	v.SetDefault("dev.delay", cfg.Dev.Delay)
	v.SetDefault("dev.ok_channels", cfg.Dev.OkChannels)
	v.SetDefault("dev.bad_channels", cfg.Dev.BadChannels)
	v.SetDefault("dev.messages", cfg.Dev.Messages)
	v.SetDefault("dev.max_text", cfg.Dev.MaxText)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
