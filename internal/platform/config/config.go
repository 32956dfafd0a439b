package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvOverrideAPI   = "GITHUB_ACTIONS_HOOKS_API"
	EnvOverrideToken = "GITHUB_ACTIONS_HOOKS_TOKEN"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Hooks     HooksConfig     `mapstructure:"hooks"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Overrides OverridesConfig `mapstructure:"overrides"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// AdminConfig holds the single operator account allowed to edit settings.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type RateLimitConfig struct {
	HooksPerMinute int `mapstructure:"hooks_per_minute"`
}

type HooksConfig struct {
	// Secret keys the HMAC on inbound hook requests. Empty disables verification.
	Secret string `mapstructure:"secret"`
}

type DispatchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	EventType string        `mapstructure:"event_type"`
	Accept    string        `mapstructure:"accept"`
}

// OverridesConfig is the process-wide fallback pair. It is read once at start-up.
type OverridesConfig struct {
	API   string `mapstructure:"api"`
	Token string `mapstructure:"token"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "file:data/pubhook.db")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("jwt.access_token_ttl", time.Hour)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("rate_limit.hooks_per_minute", 120)

	v.SetDefault("dispatch.timeout", 5*time.Second)
	v.SetDefault("dispatch.event_type", "Publish posts from WordPress")
	v.SetDefault("dispatch.accept", "application/vnd.github.everest-preview+json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads the YAML file at path and layers the environment on top of it.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The override constants keep their historical names.
	if err := v.BindEnv("overrides.api", EnvOverrideAPI); err != nil {
		return nil, err
	}
	if err := v.BindEnv("overrides.token", EnvOverrideToken); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
