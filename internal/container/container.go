package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/notification"
	"github.com/garyjia/expense-approval/internal/seed"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	store      port.Store
	feed       *notification.Feed
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Storage
// 2. Toast feed and event dispatcher
// 3. Application services
// 4. Sample data, when enabled
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	store, err := ProvideStore(ctx, &c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.store = store
	c.logger.Info("Storage initialized", zap.String("driver", c.config.Database.Driver))

	c.feed = notification.NewFeed(c.config.Notification.Capacity, c.logger.Named("notification"))
	c.dispatcher = ProvideDispatcher(c.feed, c.logger.Named("dispatcher"))
	c.logger.Info("Dispatcher initialized", zap.Bool("async", c.config.Notification.Async))

	publisher := ProvidePublisher(c.dispatcher, &c.config.Notification)
	services, err := ProvideServices(c.config, c.store, publisher, c.logger)
	if err != nil {
		return c.abort(fmt.Errorf("failed to initialize services: %w", err))
	}
	c.services = services
	c.logger.Info("Application services initialized")

	if c.config.Seed.Enabled {
		loader := seed.NewLoader(services.Directory, services.Engine, services.Hasher, utils.NewKVLogger(c.logger.Named("seed")))
		if _, err := loader.Load(ctx, c.config.Seed.Password); err != nil {
			return c.abort(fmt.Errorf("failed to seed sample data: %w", err))
		}
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// abort releases what Start opened so far
func (c *Container) abort(cause error) error {
	return multierr.Append(cause, c.teardown())
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors",
			zap.Int("error_count", len(multierr.Errors(err))),
			zap.Error(err))
		return err
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() error {
	var err error

	if c.dispatcher != nil {
		detachFeed(c.dispatcher)
		if cerr := c.dispatcher.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close dispatcher: %w", cerr))
		}
		c.dispatcher = nil
	}

	if c.store != nil {
		if cerr := c.store.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close store: %w", cerr))
		}
		c.store = nil
	}

	return err
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.store.Ping(pingCtx); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: err.Error()}
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
	}

	if c.dispatcher != nil && !c.closed.Load() {
		if missing, ok := feedSubscribed(c.dispatcher); ok {
			status.Components["dispatcher"] = ComponentHealth{Healthy: true}
		} else {
			status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "no toast feed handler for " + missing.String()}
		}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not running"}
	}

	for _, component := range status.Components {
		if !component.Healthy {
			status.Overall = false
		}
	}
	return status
}

// Store returns the storage backend
func (c *Container) Store() port.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Services returns the application services
func (c *Container) Services() *ServiceBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services
}

// Feed returns the toast feed
func (c *Container) Feed() *notification.Feed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feed
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) Config() *config.Config {
	return c.config
}
