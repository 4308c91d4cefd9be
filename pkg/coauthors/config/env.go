package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//
//	PORT, ENVIRONMENT, LOG_LEVEL
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..."
//	DB_SCHEMA, RUN_MIGRATIONS
//
// API:
//
//	API_NAMESPACE, AUTH_MODE (jwt, apikey, none), JWT_SECRET, API_KEY_SHA256,
//	REQUIRED_CAPABILITY, SEARCH_LIMIT
//
// Avatars:
//
//	AVATAR_SIZE, AVATAR_DEFAULT
//	AVATAR_STORAGE_URL - one of:
//	              - "memory://"
//	              - "file:///path/to/avatars?url_prefix=https://cdn.example.com/avatars"
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000"
//
// Integrations:
//
//	EVENT_SINK_URL, TRACING_ENABLED
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		setString(prefix, "PORT", &c.Port)
		setString(prefix, "ENVIRONMENT", &c.Environment)
		setString(prefix, "LOG_LEVEL", &c.LogLevel)

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		setString(prefix, "DB_SCHEMA", &c.DBSchema)
		if v, ok, err := parseBoolEnv(prefix, "RUN_MIGRATIONS"); err != nil {
			return err
		} else if ok {
			c.RunMigrations = v
		}

		setString(prefix, "API_NAMESPACE", &c.APINamespace)
		c.APINamespace = strings.Trim(c.APINamespace, "/")
		setString(prefix, "AUTH_MODE", &c.AuthMode)
		setString(prefix, "JWT_SECRET", &c.JWTSecret)
		setString(prefix, "API_KEY_SHA256", &c.APIKeySHA256)
		setString(prefix, "REQUIRED_CAPABILITY", &c.RequiredCapability)
		if v, ok, err := parseIntEnv(prefix, "SEARCH_LIMIT"); err != nil {
			return err
		} else if ok {
			c.SearchLimit = v
		}

		if v, ok, err := parseIntEnv(prefix, "AVATAR_SIZE"); err != nil {
			return err
		} else if ok {
			c.AvatarSize = v
		}
		setString(prefix, "AVATAR_DEFAULT", &c.AvatarDefault)
		if err := applyAvatarStorageEnv(prefix, c); err != nil {
			return err
		}

		setString(prefix, "EVENT_SINK_URL", &c.EventSinkURL)
		if v, ok, err := parseBoolEnv(prefix, "TRACING_ENABLED"); err != nil {
			return err
		} else if ok {
			c.TracingEnabled = v
		}

		return nil
	}
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")
	if !hasURL {
		return nil
	}

	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

// applyAvatarStorageEnv configures avatar storage from AVATAR_STORAGE_URL
func applyAvatarStorageEnv(prefix string, c *ServerConfig) error {
	raw, ok := lookupEnv(prefix, "AVATAR_STORAGE_URL")
	if !ok {
		return nil
	}
	if raw == "" {
		c.AvatarStorage = nil
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid AVATAR_STORAGE_URL: %w", err)
	}
	q := u.Query()

	switch u.Scheme {
	case "memory":
		return WithMemoryAvatarStorage()(c)
	case "file":
		if u.Path == "" {
			return fmt.Errorf("filesystem path cannot be empty in AVATAR_STORAGE_URL")
		}
		return WithFilesystemAvatarStorage(u.Path, q.Get("url_prefix"))(c)
	case "s3":
		if err := WithS3AvatarStorage(u.Host, q.Get("region"))(c); err != nil {
			return err
		}
		backend := c.AvatarStorage.Config
		if endpoint := q.Get("endpoint"); endpoint != "" {
			backend["endpoint"] = endpoint
			backend["use_path_style"] = true
		}
		if d := q.Get("presign_duration"); d != "" {
			backend["presign_duration"] = d
		}
		if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
			backend["access_key_id"] = accessKey
		}
		if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
			backend["secret_access_key"] = secretKey
		}
		return nil
	}

	return fmt.Errorf("unsupported AVATAR_STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func setString(prefix, key string, dst *string) {
	if v, ok := lookupEnv(prefix, key); ok && v != "" {
		*dst = v
	}
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
