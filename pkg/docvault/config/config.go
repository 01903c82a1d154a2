package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freeplm/docvault/pkg/docvault"
	memoryrepo "github.com/freeplm/docvault/pkg/docvault/repo/memory"
	postgresrepo "github.com/freeplm/docvault/pkg/docvault/repo/postgres"
	fsstorage "github.com/freeplm/docvault/pkg/docvault/storage/fs"
	memorystorage "github.com/freeplm/docvault/pkg/docvault/storage/memory"
	s3storage "github.com/freeplm/docvault/pkg/docvault/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
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
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		Storage: StorageConfig{
			Type: "memory",
		},
		InitialStatus:      string(docvault.StatusPrivate),
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the docvault service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Content storage configuration
	Storage StorageConfig

	// Workflow configuration
	InitialStatus string

	// Server options
	EnableEventLogging bool
}

// StorageConfig represents configuration for the content storage backend
type StorageConfig struct {
	Type string // "memory", "fs", "s3"

	// fs options
	BaseDir   string
	URLPrefix string

	// s3 options
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
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

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.BaseDir == "" {
			return errors.New("storage base_dir is required for fs storage")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if !docvault.Status(c.InitialStatus).IsValid() {
		return fmt.Errorf("unknown initial status: %s", c.InitialStatus)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (docvault.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []docvault.Option{
		docvault.WithRepository(repo),
		docvault.WithBlobStore(store),
		docvault.WithInitialStatus(docvault.Status(c.InitialStatus)),
	}

	if c.EnableEventLogging {
		options = append(options, docvault.WithEventSink(docvault.NewLoggingEventSink(nil)))
	}

	return docvault.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (docvault.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memoryrepo.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return postgresrepo.New(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorage creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorage() (docvault.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.BaseDir,
			URLPrefix: c.Storage.URLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.Storage.Region,
			Bucket:          c.Storage.Bucket,
			Endpoint:        c.Storage.Endpoint,
			AccessKeyID:     c.Storage.AccessKeyID,
			SecretAccessKey: c.Storage.SecretAccessKey,
			UsePathStyle:    c.Storage.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

// PingPostgres verifies connectivity to Postgres. It is used by readiness
// checks before the server starts serving.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
