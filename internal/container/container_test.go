package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/config"
	"github.com/garyjia/expense-approval/internal/domain/access"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

func testConfig(t *testing.T, driver string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "data", "expenses.db")},
		Security: config.SecurityConfig{BcryptCost: 4},
		Registration: config.RegistrationConfig{
			DefaultManagerEmail: "manager@company.com",
			AllowedRoles:        []string{"Employee", "Manager"},
		},
		Notification: config.NotificationConfig{Capacity: 10},
		Seed:         config.SeedConfig{Enabled: true, Password: "password123"},
	}
}

func TestNewContainer_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)
	_, err = NewContainer(testConfig(t, config.DriverSQLite), nil)
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverBolt} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			c, err := NewContainer(testConfig(t, driver), zap.NewNop())
			require.NoError(t, err)

			require.NoError(t, c.Start(ctx))
			assert.True(t, c.Ready())
			assert.Error(t, c.Start(ctx), "second start must fail")

			health := c.Health(ctx)
			assert.True(t, health.Overall)
			assert.True(t, health.Components["database"].Healthy)

			svc := c.Services().Expenses
			john, err := svc.Login(ctx, "manager@company.com", "password123")
			require.NoError(t, err)

			queue, err := svc.ListVisibleExpenses(ctx, john, access.FilterPending)
			require.NoError(t, err)
			require.Len(t, queue.Queue(), 1, "Bob's keyboard waits for John")

			expense := queue.Queue()[0].Expense
			_, err = svc.DecideExpense(ctx, john, expense.ID, workflow.DecisionApprove, "")
			require.NoError(t, err)

			toasts := c.Feed().Drain(expense.OwnerID)
			require.NotEmpty(t, toasts)
			assert.Equal(t, string(entity.StatusApproved), toasts[len(toasts)-1].NewStatus)

			require.NoError(t, c.Close())
			assert.False(t, c.Ready())
			assert.Error(t, c.Close())
			assert.False(t, c.Health(ctx).Overall)
		})
	}
}

func TestContainer_AsyncNotifications(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.DriverBolt)
	cfg.Notification.Async = true

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))

	svc := c.Services().Expenses
	john, err := svc.Login(ctx, "manager@company.com", "password123")
	require.NoError(t, err)
	queue, err := svc.ListVisibleExpenses(ctx, john, access.FilterPending)
	require.NoError(t, err)
	require.Len(t, queue.Queue(), 1)

	expense := queue.Queue()[0].Expense
	reqCtx, cancel := context.WithCancel(ctx)
	_, err = svc.DecideExpense(reqCtx, john, expense.ID, workflow.DecisionReject, "Missing receipt")
	cancel()
	require.NoError(t, err)

	// Close waits for background handlers
	require.NoError(t, c.Close())

	toasts := c.Feed().Drain(expense.OwnerID)
	require.NotEmpty(t, toasts)
	assert.Equal(t, string(entity.StatusRejected), toasts[len(toasts)-1].NewStatus)
}

func TestContainer_HealthReportsMissingFeedHandler(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(testConfig(t, config.DriverBolt), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	require.True(t, c.Health(ctx).Components["dispatcher"].Healthy)

	c.Dispatcher().Unsubscribe(event.TypeExpenseApproved, feedHandlerName)

	health := c.Health(ctx)
	assert.False(t, health.Overall)
	assert.Contains(t, health.Components["dispatcher"].Message, string(event.TypeExpenseApproved))
}

func TestContainer_RegisterUsesDefaultManager(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(testConfig(t, config.DriverBolt), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Close() })

	user, err := c.Services().Expenses.Register(ctx, entity.Registration{
		Name: "Nina New", Email: "nina@company.com", Credential: "secret", Role: entity.RoleEmployee,
	})
	require.NoError(t, err)

	john, err := c.Services().Directory.FindByEmail(ctx, "manager@company.com")
	require.NoError(t, err)
	require.NotNil(t, user.ManagerID)
	assert.Equal(t, john.ID, *user.ManagerID)

	_, err = c.Services().Expenses.Register(ctx, entity.Registration{
		Name: "Eve", Email: "eve@company.com", Credential: "secret", Role: entity.RoleAdmin,
	})
	assert.True(t, errors.Is(err, entity.ErrValidation))
}
