package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-default-secret-key-change-in-production"

// Config is the server configuration. Keys are flat so the same names work
// in a .env file, a config file and the environment (upper-cased).
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	SeedLists       bool          `mapstructure:"seed_lists"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsesDefaultSecret reports whether no JWT secret was configured.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// MarshalYAML renders durations as strings and masks the secret.
func (c Config) MarshalYAML() (interface{}, error) {
	secret := "********"
	if c.UsesDefaultSecret() {
		secret = "(default)"
	}
	return map[string]interface{}{
		"host":             c.Host,
		"port":             c.Port,
		"jwt_secret":       secret,
		"token_ttl":        c.TokenTTL.String(),
		"cors_origins":     c.CORSOrigins,
		"log_level":        c.LogLevel,
		"log_format":       c.LogFormat,
		"seed_lists":       c.SeedLists,
		"read_timeout":     c.ReadTimeout.String(),
		"write_timeout":    c.WriteTimeout.String(),
		"idle_timeout":     c.IdleTimeout.String(),
		"shutdown_timeout": c.ShutdownTimeout.String(),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 3001)
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("token_ttl", 7*24*time.Hour)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("seed_lists", true)
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 15*time.Second)
	v.SetDefault("idle_timeout", 60*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// LoadConfig resolves the configuration from, lowest precedence first:
// defaults, envFile (dotenv, skipped when missing), configFile (format from
// its extension), environment variables, and any flags already bound to v.
func LoadConfig(v *viper.Viper, configFile, envFile string) (*Config, error) {
	setDefaults(v)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if _, err := parseFormatter(c.LogFormat); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
