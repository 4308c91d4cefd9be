package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMigrations enables schema migrations on startup
func WithMigrations(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.RunMigrations = enabled
		return nil
	}
}

// WithJWTAuth authenticates callers with HS256 bearer tokens
func WithJWTAuth(secret string) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.AuthMode = AuthModeJWT
		c.JWTSecret = secret
		return nil
	}
}

// WithAPIKeyAuth authenticates callers with an API key given by its SHA-256 hash
func WithAPIKeyAuth(sha256Hex string) Option {
	return func(c *ServerConfig) error {
		if sha256Hex == "" {
			return fmt.Errorf("api key hash cannot be empty")
		}
		c.AuthMode = AuthModeAPIKey
		c.APIKeySHA256 = sha256Hex
		return nil
	}
}

// WithoutAuth authorizes every caller. Rejected in production.
func WithoutAuth() Option {
	return func(c *ServerConfig) error {
		c.AuthMode = AuthModeNone
		return nil
	}
}

// WithRequiredCapability sets the capability callers must hold
func WithRequiredCapability(capability string) Option {
	return func(c *ServerConfig) error {
		if capability == "" {
			return fmt.Errorf("capability cannot be empty")
		}
		c.RequiredCapability = capability
		return nil
	}
}

// WithSearchLimit caps the number of search results
func WithSearchLimit(limit int) Option {
	return func(c *ServerConfig) error {
		if limit <= 0 {
			return fmt.Errorf("search limit must be positive, got: %d", limit)
		}
		c.SearchLimit = limit
		return nil
	}
}

// WithGravatar sets the size and fallback image of Gravatar URLs
func WithGravatar(size int, fallback string) Option {
	return func(c *ServerConfig) error {
		if size > 0 {
			c.AvatarSize = size
		}
		if fallback != "" {
			c.AvatarDefault = fallback
		}
		return nil
	}
}

// WithMemoryAvatarStorage keeps stored avatars in memory
func WithMemoryAvatarStorage() Option {
	return func(c *ServerConfig) error {
		c.AvatarStorage = &StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemAvatarStorage serves stored avatars from baseDir under urlPrefix
func WithFilesystemAvatarStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.AvatarStorage = &StorageBackendConfig{
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir":   baseDir,
				"url_prefix": urlPrefix,
			},
		}
		return nil
	}
}

// WithS3AvatarStorage presigns stored avatar URLs from an S3 bucket
func WithS3AvatarStorage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.AvatarStorage = &StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithEventSink publishes guest author events to url
func WithEventSink(url string) Option {
	return func(c *ServerConfig) error {
		c.EventSinkURL = url
		return nil
	}
}

// WithTracing enables OpenTelemetry span export
func WithTracing(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.TracingEnabled = enabled
		return nil
	}
}
