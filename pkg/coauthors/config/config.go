package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/coauthors/pkg/coauthors"
	"github.com/tendant/coauthors/pkg/coauthors/events"
	"github.com/tendant/coauthors/pkg/coauthors/repo/memory"
	repopg "github.com/tendant/coauthors/pkg/coauthors/repo/postgres"
	fsstorage "github.com/tendant/coauthors/pkg/coauthors/storage/fs"
	memorystorage "github.com/tendant/coauthors/pkg/coauthors/storage/memory"
	s3storage "github.com/tendant/coauthors/pkg/coauthors/storage/s3"
)

// Authentication modes of the HTTP API.
const (
	AuthModeJWT    = "jwt"
	AuthModeAPIKey = "apikey"
	AuthModeNone   = "none"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		LogLevel:           "info",
		DatabaseType:       "memory",
		DBSchema:           "coauthors",
		APINamespace:       "coauthors/v1",
		AuthMode:           AuthModeJWT,
		RequiredCapability: coauthors.DefaultCapability,
		SearchLimit:        10,
		AvatarSize:         96,
		AvatarDefault:      "mm",
	}
}

// ServerConfig represents configuration for the coauthors service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error

	// Database configuration
	DatabaseURL   string
	DatabaseType  string // "memory", "postgres"
	DBSchema      string // Postgres schema to use (default: coauthors)
	RunMigrations bool

	// API configuration
	APINamespace       string
	AuthMode           string // "jwt", "apikey", "none"
	JWTSecret          string
	APIKeySHA256       string
	RequiredCapability string
	SearchLimit        int

	// Avatars
	AvatarSize    int
	AvatarDefault string
	AvatarStorage *StorageBackendConfig // nil means Gravatar only

	EventSinkURL   string
	TracingEnabled bool
}

// StorageBackendConfig represents configuration for the avatar storage backend
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.APINamespace == "" {
		return errors.New("api namespace is required")
	}

	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return errors.New("jwt_secret is required when auth mode is jwt")
		}
	case AuthModeAPIKey:
		if c.APIKeySHA256 == "" {
			return errors.New("api_key_sha256 is required when auth mode is apikey")
		}
	case AuthModeNone:
		if c.Environment == "production" {
			return errors.New("auth mode none is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported auth mode: %s", c.AuthMode)
	}

	if c.RequiredCapability == "" {
		return errors.New("required capability cannot be empty")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("search limit must be positive, got: %d", c.SearchLimit)
	}
	if c.AvatarSize < 1 || c.AvatarSize > 2048 {
		return fmt.Errorf("avatar size must be between 1 and 2048, got: %d", c.AvatarSize)
	}

	if c.AvatarStorage != nil {
		switch c.AvatarStorage.Type {
		case "memory", "fs", "s3":
		default:
			return fmt.Errorf("unsupported storage backend type: %s", c.AvatarStorage.Type)
		}
	}

	return nil
}

// BuildService creates a Service instance from the server configuration.
// The returned close function releases the database pool, if any.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (coauthors.Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	options := []coauthors.Option{
		coauthors.WithLogger(logger),
		coauthors.WithSearchLimit(c.SearchLimit),
	}

	repo, closeRepo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, coauthors.WithRepository(repo))

	resolver, err := c.buildAvatarResolver(ctx)
	if err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("failed to build avatar resolver: %w", err)
	}
	options = append(options, coauthors.WithAvatarResolver(resolver))

	if c.EventSinkURL != "" {
		sink, err := events.New(events.Config{TargetURL: c.EventSinkURL})
		if err != nil {
			closeRepo()
			return nil, nil, fmt.Errorf("failed to build event sink: %w", err)
		}
		options = append(options, coauthors.WithEventSink(sink))
	}

	svc, err := coauthors.New(options...)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}
	return svc, closeRepo, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (coauthors.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}

		if c.RunMigrations {
			if err := repopg.Migrate(ctx, pool, c.DatabaseURL, schema); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (c *ServerConfig) buildAvatarResolver(ctx context.Context) (coauthors.AvatarResolver, error) {
	gravatar := coauthors.NewGravatarResolver(c.AvatarSize, c.AvatarDefault)
	if c.AvatarStorage == nil {
		return gravatar, nil
	}
	store, err := buildStorageBackend(ctx, *c.AvatarStorage)
	if err != nil {
		return nil, err
	}
	return coauthors.NewStoredAvatarResolver(store, gravatar), nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func buildStorageBackend(ctx context.Context, config StorageBackendConfig) (coauthors.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/avatars"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:          getString(config.Config, "region", "us-east-1"),
			Bucket:          getString(config.Config, "bucket", ""),
			AccessKeyID:     getString(config.Config, "access_key_id", ""),
			SecretAccessKey: getString(config.Config, "secret_access_key", ""),
			Endpoint:        getString(config.Config, "endpoint", ""),
			UsePathStyle:    getBool(config.Config, "use_path_style", false),
			PresignDuration: getInt(config.Config, "presign_duration", 3600),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		switch v := value.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return defaultValue
}
