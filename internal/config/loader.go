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
	envConfigDefaultPath = "IRCGATE_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("IRCGATE")
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
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

// setDefaults registers every key so AutomaticEnv can override nested values.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)

	v.SetDefault("irc.addr", cfg.IRC.Addr)
	v.SetDefault("irc.hostname", cfg.IRC.Hostname)

	v.SetDefault("backend.base_url", cfg.Backend.BaseURL)
	v.SetDefault("backend.user_agent", cfg.Backend.UserAgent)
	v.SetDefault("backend.request_timeout", cfg.Backend.RequestTimeout)
	v.SetDefault("backend.anonymous_gender", cfg.Backend.AnonymousGender)

	v.SetDefault("sync.tick", cfg.Sync.Tick)
	v.SetDefault("sync.messages_interval", cfg.Sync.MessagesInterval)
	v.SetDefault("sync.users_interval", cfg.Sync.UsersInterval)

	v.SetDefault("idler.enabled", cfg.Idler.Enabled)
	v.SetDefault("idler.idle_time", cfg.Idler.IdleTime)
	v.SetDefault("idler.phrases", cfg.Idler.Phrases)

	v.SetDefault("transform.smileys", cfg.Transform.Smileys)

	v.SetDefault("status.addr", cfg.Status.Addr)
	v.SetDefault("status.jwt_secret", cfg.Status.JWTSecret)
	v.SetDefault("status.jwt_issuer", cfg.Status.JWTIssuer)
	v.SetDefault("status.read_header_timeout", cfg.Status.ReadHeaderTimeout)
	v.SetDefault("status.shutdown_timeout", cfg.Status.ShutdownTimeout)
	v.SetDefault("status.ws_lines_per_minute", cfg.Status.WSLinesPerMinute)
}

// Validate rejects values the gateway cannot run with.
func (c Config) Validate() error {
	if c.IRC.Addr == "" {
		return errors.New("irc.addr must be set")
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set")
	}
	if c.Sync.Tick <= 0 {
		return fmt.Errorf("sync.tick must be positive, got %s", c.Sync.Tick)
	}
	if c.Sync.MessagesInterval < c.Sync.Tick || c.Sync.UsersInterval < c.Sync.Tick {
		return errors.New("sync intervals must not be shorter than sync.tick")
	}
	if c.Status.WSLinesPerMinute < 0 {
		return errors.New("status.ws_lines_per_minute must not be negative")
	}
	if c.Idler.Enabled && len(c.Idler.Phrases) == 0 {
		return errors.New("idler.phrases must not be empty when the idler is enabled")
	}
	return nil
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
