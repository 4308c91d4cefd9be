package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// FileConfig is the layout of a YAML, JSON or TOML configuration file.
// Zero values leave the current setting untouched.
type FileConfig struct {
	Port        string `yaml:"port" json:"port" toml:"port"`
	Environment string `yaml:"environment" json:"environment" toml:"environment"`
	LogLevel    string `yaml:"log_level" json:"log_level" toml:"log_level"`

	Database struct {
		URL           string `yaml:"url" json:"url" toml:"url"`
		Schema        string `yaml:"schema" json:"schema" toml:"schema"`
		RunMigrations bool   `yaml:"run_migrations" json:"run_migrations" toml:"run_migrations"`
	} `yaml:"database" json:"database" toml:"database"`

	API struct {
		Namespace          string `yaml:"namespace" json:"namespace" toml:"namespace"`
		AuthMode           string `yaml:"auth_mode" json:"auth_mode" toml:"auth_mode"`
		JWTSecret          string `yaml:"jwt_secret" json:"jwt_secret" toml:"jwt_secret"`
		APIKeySHA256       string `yaml:"api_key_sha256" json:"api_key_sha256" toml:"api_key_sha256"`
		RequiredCapability string `yaml:"required_capability" json:"required_capability" toml:"required_capability"`
		SearchLimit        int    `yaml:"search_limit" json:"search_limit" toml:"search_limit"`
	} `yaml:"api" json:"api" toml:"api"`

	Avatar struct {
		Size    int                    `yaml:"size" json:"size" toml:"size"`
		Default string                 `yaml:"default" json:"default" toml:"default"`
		Storage string                 `yaml:"storage" json:"storage" toml:"storage"` // memory, fs, s3
		Options map[string]interface{} `yaml:"options" json:"options" toml:"options"`
	} `yaml:"avatar" json:"avatar" toml:"avatar"`

	EventSinkURL   string `yaml:"event_sink_url" json:"event_sink_url" toml:"event_sink_url"`
	TracingEnabled bool   `yaml:"tracing_enabled" json:"tracing_enabled" toml:"tracing_enabled"`
}

// WithFile applies settings read from a configuration file.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		var fc FileConfig
		if err := cleanenv.ReadConfig(path, &fc); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return fc.apply(c)
	}
}

func (fc *FileConfig) apply(c *ServerConfig) error {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	override(&c.Port, fc.Port)
	override(&c.Environment, fc.Environment)
	override(&c.LogLevel, fc.LogLevel)

	if fc.Database.URL != "" {
		dbType := "postgres"
		if fc.Database.URL == "memory" {
			dbType = "memory"
			fc.Database.URL = ""
		}
		if err := WithDatabase(dbType, fc.Database.URL)(c); err != nil {
			return err
		}
	}
	override(&c.DBSchema, fc.Database.Schema)
	c.RunMigrations = c.RunMigrations || fc.Database.RunMigrations

	override(&c.APINamespace, fc.API.Namespace)
	override(&c.AuthMode, fc.API.AuthMode)
	override(&c.JWTSecret, fc.API.JWTSecret)
	override(&c.APIKeySHA256, fc.API.APIKeySHA256)
	override(&c.RequiredCapability, fc.API.RequiredCapability)
	if fc.API.SearchLimit != 0 {
		c.SearchLimit = fc.API.SearchLimit
	}

	if fc.Avatar.Size != 0 {
		c.AvatarSize = fc.Avatar.Size
	}
	override(&c.AvatarDefault, fc.Avatar.Default)
	if fc.Avatar.Storage != "" {
		options := fc.Avatar.Options
		if options == nil {
			options = map[string]interface{}{}
		}
		c.AvatarStorage = &StorageBackendConfig{Type: fc.Avatar.Storage, Config: options}
	}

	override(&c.EventSinkURL, fc.EventSinkURL)
	c.TracingEnabled = c.TracingEnabled || fc.TracingEnabled
	return nil
}
