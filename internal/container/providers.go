package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/garyjia/promotion-approval/internal/application/dispatcher"
	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/application/service"
	"github.com/garyjia/promotion-approval/internal/infrastructure/export"
	"github.com/garyjia/promotion-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/promotion-approval/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/promotion-approval/internal/interfaces/http"
	"github.com/garyjia/promotion-approval/pkg/database"
	"github.com/garyjia/promotion-approval/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
	closer         *database.DB
}

// ProvideDatabase opens the SQLite database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(database.EmbeddedMigrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
		closer:         db,
	}, nil
}

// Close closes the underlying connection pool.
func (b *DatabaseBundle) Close() error {
	return b.closer.Close()
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Promotion: repository.NewPromotionRepository(sqlDB, logger),
		Employee:  repository.NewEmployeeRepository(sqlDB, logger),
		Chain:     repository.NewChainConfigRepository(sqlDB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher with the audit log subscribed to every event.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	adapter := &zapLoggerAdapter{logger: utils.Named(logger, "dispatcher")}
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(adapter))
	d.SubscribeAll("audit_log", dispatcher.AuditLogHandler(&zapLoggerAdapter{logger: utils.Named(logger, "audit")}))
	return d, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Publisher port.EventPublisher
	Approval  *ApprovalConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Approval == nil {
		return nil, fmt.Errorf("approval config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: utils.Named(deps.Logger, "service")}
	renderer := export.NewExcelRenderer(utils.Named(deps.Logger, "export"))

	return &ServiceBundle{
		Promotion: service.NewPromotionService(
			deps.Repos.Promotion,
			deps.Repos.Employee,
			deps.Repos.Chain,
			deps.TxManager,
			deps.Publisher,
			serviceLogger,
			service.PromotionOptions{ManagerSelfApproval: deps.Approval.ManagerSelfApproval},
		),
		History: service.NewHistoryService(
			deps.Repos.Promotion,
			deps.Repos.Chain,
			serviceLogger,
		),
		Chain: service.NewChainService(
			deps.Repos.Chain,
			deps.Publisher,
			serviceLogger,
		),
		Export: service.NewExportService(
			deps.Repos.Promotion,
			deps.Repos.Employee,
			deps.Repos.Chain,
			renderer,
			serviceLogger,
		),
	}, nil
}

// ServerDeps holds dependencies required for creating the HTTP server.
type ServerDeps struct {
	Config   *ServerConfig
	Auth     *AuthConfig
	Services *ServiceBundle
	Health   func(ctx context.Context) error
	Logger   *zap.Logger
}

// ProvideHTTPServer creates the REST server and its token authenticator.
func ProvideHTTPServer(deps *ServerDeps) (*httpapi.Server, error) {
	if deps == nil {
		return nil, fmt.Errorf("server dependencies are required")
	}
	if deps.Config == nil || deps.Auth == nil {
		return nil, fmt.Errorf("server and auth config are required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	auth, err := httpapi.NewAuthenticator(deps.Auth.JWTSecret, deps.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         deps.Config.Host,
			Port:         deps.Config.Port,
			ReadTimeout:  deps.Config.ReadTimeout,
			WriteTimeout: deps.Config.WriteTimeout,
			Mode:         deps.Config.Mode,
		},
		httpapi.Services{
			Promotions: deps.Services.Promotion,
			History:    deps.Services.History,
			Chains:     deps.Services.Chain,
			Exports:    deps.Services.Export,
		},
		auth,
		deps.Health,
		&zapLoggerAdapter{logger: utils.Named(deps.Logger, "http")},
	), nil
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of the
// service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
