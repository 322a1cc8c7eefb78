package config

import (
	"github.com/garyjia/promotion-approval/internal/container"
)

// ToContainerConfig converts the viper-loaded Config into the container's configuration
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Mode:         c.Server.Mode,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Approval: container.ApprovalConfig{
			DefaultChain:        append([]string{}, c.Approval.DefaultChain...),
			ManagerSelfApproval: c.Approval.ManagerSelfApproval,
		},
	}
}
