// Package container provides dependency injection and lifecycle management
// for the promotion approval service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Auth configuration for bearer tokens
	Auth AuthConfig

	// Approval workflow configuration
	Approval ApprovalConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// Mode is the gin mode (debug, release, test)
	Mode string
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// ApprovalConfig holds approval workflow settings.
type ApprovalConfig struct {
	// DefaultChain is stored as the approval chain when none is configured
	DefaultChain []string

	// ManagerSelfApproval stamps the manager decision when a manager files for a direct report
	ManagerSelfApproval bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/promotions.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Mode:         "release",
		},
		Auth: AuthConfig{
			Issuer: "promotion-approval",
		},
		Approval: ApprovalConfig{
			DefaultChain:        []string{"manager", "gm", "hr"},
			ManagerSelfApproval: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if _, err := workflow.ParseChain(c.Approval.DefaultChain); err != nil {
		return fmt.Errorf("approval.default_chain: %w", err)
	}
	return nil
}
