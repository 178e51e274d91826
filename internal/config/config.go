package config

import "time"

// Config holds gateway configuration values.
type Config struct {
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
	LogFile   string          `mapstructure:"log_file" yaml:"log_file"`
	IRC       IRCConfig       `mapstructure:"irc" yaml:"irc"`
	Backend   BackendConfig   `mapstructure:"backend" yaml:"backend"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Idler     IdlerConfig     `mapstructure:"idler" yaml:"idler"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform"`
	Status    StatusConfig    `mapstructure:"status" yaml:"status"`
}

// IRCConfig configures the IRC listener.
type IRCConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Hostname string `mapstructure:"hostname" yaml:"hostname"`
}

// BackendConfig describes the chat web service.
type BackendConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	AnonymousGender string        `mapstructure:"anonymous_gender" yaml:"anonymous_gender"`
}

// SyncConfig sets the polling cadence.
type SyncConfig struct {
	Tick             time.Duration `mapstructure:"tick" yaml:"tick"`
	MessagesInterval time.Duration `mapstructure:"messages_interval" yaml:"messages_interval"`
	UsersInterval    time.Duration `mapstructure:"users_interval" yaml:"users_interval"`
}

// IdlerConfig controls automatic messages in idle rooms.
type IdlerConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	IdleTime time.Duration `mapstructure:"idle_time" yaml:"idle_time"`
	Phrases  []string      `mapstructure:"phrases" yaml:"phrases"`
}

// TransformConfig toggles the built-in text transformers.
type TransformConfig struct {
	Smileys bool `mapstructure:"smileys" yaml:"smileys"`
}

// StatusConfig configures the optional HTTP status server.
type StatusConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// WSLinesPerMinute caps inbound lines per WebSocket client; 0 disables the cap.
	WSLinesPerMinute int `mapstructure:"ws_lines_per_minute" yaml:"ws_lines_per_minute"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36"

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		IRC: IRCConfig{
			Addr:     ":6667",
			Hostname: "localhost",
		},
		Backend: BackendConfig{
			BaseURL:         "https://chat.cz",
			UserAgent:       defaultUserAgent,
			AnonymousGender: "m",
		},
		Sync: SyncConfig{
			Tick:             time.Second,
			MessagesInterval: 5 * time.Second,
			UsersInterval:    50 * time.Second,
		},
		Idler: IdlerConfig{
			IdleTime: 30 * time.Minute,
			Phrases:  []string{".", ".."},
		},
		Transform: TransformConfig{
			Smileys: true,
		},
		Status: StatusConfig{
			JWTIssuer:         "ircgate",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.IRC.Addr != "" {
		c.IRC.Addr = other.IRC.Addr
	}
	if other.IRC.Hostname != "" {
		c.IRC.Hostname = other.IRC.Hostname
	}
	if other.Backend.BaseURL != "" {
		c.Backend.BaseURL = other.Backend.BaseURL
	}
	if other.Status.Addr != "" {
		c.Status.Addr = other.Status.Addr
	}
}
