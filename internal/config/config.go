package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// AccountEntry is one row of the configured account table.
type AccountEntry struct {
	Name    string `mapstructure:"name"`
	Email   string `mapstructure:"email"`
	Role    string `mapstructure:"role"`
	Enabled bool   `mapstructure:"enabled"`
}

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Auth struct {
		SigningSecret string        `mapstructure:"signing_secret"`
		TokenTTL      time.Duration `mapstructure:"token_ttl"`
		CodeLength    int           `mapstructure:"code_length"`
		Timezone      string        `mapstructure:"timezone"`
	} `mapstructure:"auth"`
	Generation struct {
		BaseURL string        `mapstructure:"base_url"`
		APIKey  string        `mapstructure:"api_key"`
		Model   string        `mapstructure:"model"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"generation"`
	Dispatch struct {
		ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
		StrictInput      bool          `mapstructure:"strict_input"`
	} `mapstructure:"dispatch"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Accounts []AccountEntry `mapstructure:"accounts"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("auth.code_length", 6)
	viper.SetDefault("auth.timezone", "UTC")
	viper.SetDefault("dispatch.execution_timeout", 30*time.Second)
	viper.SetDefault("generation.timeout", 30*time.Second)
	viper.SetDefault("db.sslmode", "disable")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Auth.SigningSecret == "" {
		return nil, errors.New("auth.signing_secret must be set")
	}
	if len(config.Accounts) == 0 {
		return nil, errors.New("at least one account must be configured")
	}

	return &config, nil
}

// Location resolves the configured time zone. Daily codes expire at the
// end of the calendar day in this zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Auth.Timezone)
}
