// Package container provides dependency injection and lifecycle management
// for the expense approval service.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/domain/event"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/bolt"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-approval/internal/infrastructure/security"
	"github.com/garyjia/expense-approval/internal/notification"
	"github.com/garyjia/expense-approval/migrations"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// ServiceBundle groups the application services
type ServiceBundle struct {
	Directory *service.Directory
	Ledger    *service.Ledger
	Engine    workflow.Engine
	Hasher    port.CredentialHasher
	Expenses  service.ExpenseService
}

// ProvideStore opens the configured storage backend. SQLite databases are
// migrated before the store is returned.
func ProvideStore(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (port.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	switch cfg.Driver {
	case config.DriverBolt:
		return bolt.Open(cfg.Path, logger)
	case config.DriverSQLite:
		db, err := database.New(database.Config{
			Path:            cfg.Path,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			BusyTimeout:     cfg.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}

		if err := database.NewMigrator(db, logger).Run(ctx, migrations.FS); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return repository.NewStore(sqlite.NewDB(db.DB, logger), logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// feedHandlerName is the dispatcher subscription of the toast feed
const feedHandlerName = "toast-feed"

// ProvideDispatcher creates the event dispatcher and subscribes the toast feed
func ProvideDispatcher(feed *notification.Feed, logger *zap.Logger) dispatcher.Dispatcher {
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKVLogger(logger)))
	d.Subscribe(feedHandlerName, feed.Handle, notification.EventTypes()...)
	return d
}

// ProvidePublisher returns the publisher the engine emits through. In async mode
// events are handed to background handlers and the caller never waits on them.
func ProvidePublisher(d dispatcher.Dispatcher, cfg *config.NotificationConfig) dispatcher.Publisher {
	if cfg.Async {
		return asyncPublisher{d: d}
	}
	return d
}

type asyncPublisher struct {
	d dispatcher.Dispatcher
}

// Dispatch detaches evt from the request context so delivery survives the response
func (p asyncPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	p.d.DispatchAsync(context.WithoutCancel(ctx), evt)
	return nil
}

// detachFeed stops queueing toasts, used on shutdown before the dispatcher drains
func detachFeed(d dispatcher.Dispatcher) {
	for _, t := range notification.EventTypes() {
		d.Unsubscribe(t, feedHandlerName)
	}
}

// feedSubscribed reports the first feed event type with no feed handler
func feedSubscribed(d dispatcher.Dispatcher) (event.Type, bool) {
	for _, t := range notification.EventTypes() {
		found := false
		for _, h := range d.ListHandlers(t) {
			if h.Name == feedHandlerName {
				found = true
				break
			}
		}
		if !found {
			return t, false
		}
	}
	return "", true
}

// ProvideServices wires directory, ledger, engine and the expense facade on top of store
func ProvideServices(cfg *config.Config, store port.Store, publisher dispatcher.Publisher, logger *zap.Logger) (*ServiceBundle, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	adapter := utils.NewKVLogger(logger)
	directory := service.NewDirectory(store.Users(), adapter)
	ledger := service.NewLedger(store.Expenses(), store.History(), store.Transactions(), adapter)
	engine := workflow.NewEngine(directory, ledger, adapter, workflow.WithPublisher(publisher))
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	roles, err := cfg.Registration.Roles()
	if err != nil {
		return nil, err
	}

	var policy port.ManagerAssignmentPolicy = service.NoManager{}
	if cfg.Registration.DefaultManagerEmail != "" {
		policy = service.NewFixedManager(store.Users(), cfg.Registration.DefaultManagerEmail)
	}

	expenses, err := service.NewExpenseService(service.ExpenseServiceConfig{
		Directory:    directory,
		Ledger:       ledger,
		Engine:       engine,
		Hasher:       hasher,
		Policy:       policy,
		AllowedRoles: roles,
		Logger:       adapter,
	})
	if err != nil {
		return nil, fmt.Errorf("create expense service: %w", err)
	}

	return &ServiceBundle{
		Directory: directory,
		Ledger:    ledger,
		Engine:    engine,
		Hasher:    hasher,
		Expenses:  expenses,
	}, nil
}
