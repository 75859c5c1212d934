package repository

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-approval/migrations"
	"github.com/garyjia/expense-approval/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "expenses.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(context.Background(), migrations.FS))
	return NewStore(sqlite.NewDB(db.DB, logger), logger)
}

func createUser(t *testing.T, s *Store, name, email string, role entity.Role, managerID *int64) *entity.User {
	t.Helper()
	user := &entity.User{
		Name:           name,
		Email:          email,
		Role:           role,
		CredentialHash: "hash",
		ManagerID:      managerID,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

func createExpense(t *testing.T, s *Store, ownerID int64) *entity.Expense {
	t.Helper()
	now := time.Now().UTC()
	expense := &entity.Expense{
		OwnerID:     ownerID,
		Date:        time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC),
		Category:    entity.CategoryTravel,
		Description: "Flight to client site",
		Amount:      decimal.RequireFromString("450.25"),
		Currency:    "USD",
		Status:      entity.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Expenses().Create(context.Background(), expense))
	return expense
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	john := createUser(t, s, "John", "john@company.com", entity.RoleManager, nil)
	alice := createUser(t, s, "Alice", "Alice@Company.com", entity.RoleEmployee, &john.ID)
	assert.NotZero(t, alice.ID)

	got, err := s.Users().GetByEmail(ctx, "ALICE@company.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice@company.com", got.Email)
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, john.ID, *got.ManagerID)

	got, err = s.Users().GetByID(ctx, john.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ManagerID)
	assert.Equal(t, entity.RoleManager, got.Role)

	_, err = s.Users().GetByID(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)

	dup := &entity.User{Name: "Other", Email: "ALICE@company.com", Role: entity.RoleEmployee, CredentialHash: "x", CreatedAt: time.Now()}
	err := s.Users().Create(context.Background(), dup)
	assert.ErrorIs(t, err, entity.ErrDuplicateEmail)
}

func TestUserRepository_ListByManager(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	john := createUser(t, s, "John", "john@company.com", entity.RoleManager, nil)
	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, &john.ID)
	bob := createUser(t, s, "Bob", "bob@company.com", entity.RoleEmployee, &john.ID)
	createUser(t, s, "Carol", "carol@company.com", entity.RoleEmployee, &alice.ID)

	reports, err := s.Users().ListByManager(ctx, john.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, alice.ID, reports[0].ID)
	assert.Equal(t, bob.ID, reports[1].ID)

	all, err := s.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExpenseRepository_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	created := createExpense(t, s, alice.ID)

	got, err := s.Expenses().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-04", got.Date.Format(entity.DateLayout))
	assert.True(t, decimal.RequireFromString("450.25").Equal(got.Amount))
	assert.Equal(t, entity.CategoryTravel, got.Category)
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Empty(t, got.Comments)

	_, err = s.Expenses().GetByID(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestExpenseRepository_ListOrder(t *testing.T) {
	s := newTestStore(t)
	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	first := createExpense(t, s, alice.ID)
	second := createExpense(t, s, alice.ID)

	list, err := s.Expenses().List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestExpenseRepository_UpdateContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	expense := createExpense(t, s, alice.ID)

	expense.Description = "Train to client site"
	expense.Amount = decimal.NewFromInt(80)
	require.NoError(t, s.Expenses().UpdateContent(ctx, expense))

	got, err := s.Expenses().GetByID(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "Train to client site", got.Description)
	assert.True(t, decimal.NewFromInt(80).Equal(got.Amount))

	require.NoError(t, s.Expenses().CompareAndSetStatus(ctx, expense.ID, entity.StatusPending, entity.StatusApproved, "", time.Now()))

	expense.Description = "too late"
	err = s.Expenses().UpdateContent(ctx, expense)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	missing := expense.Clone()
	missing.ID = 999
	assert.ErrorIs(t, s.Expenses().UpdateContent(ctx, missing), entity.ErrNotFound)
}

func TestExpenseRepository_CompareAndSetStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	expense := createExpense(t, s, alice.ID)

	err := s.Expenses().CompareAndSetStatus(ctx, expense.ID, entity.StatusPending, entity.StatusRejected, "Missing receipt", time.Now())
	require.NoError(t, err)

	got, err := s.Expenses().GetByID(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
	assert.Equal(t, "Missing receipt", got.Comments)

	err = s.Expenses().CompareAndSetStatus(ctx, expense.ID, entity.StatusPending, entity.StatusApproved, "", time.Now())
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	err = s.Expenses().CompareAndSetStatus(ctx, 999, entity.StatusPending, entity.StatusApproved, "", time.Now())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestExpenseRepository_ConcurrentCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	expense := createExpense(t, s, alice.ID)

	var wins, conflicts int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		next := entity.StatusApproved
		if i%2 == 1 {
			next = entity.StatusRejected
		}
		g.Go(func() error {
			err := s.Expenses().CompareAndSetStatus(ctx, expense.ID, entity.StatusPending, next, "race", time.Now())
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case assert.ErrorIs(t, err, entity.ErrInvalidTransition):
				atomic.AddInt32(&conflicts, 1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(7), conflicts)
}

func TestHistoryRepository_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	expense := createExpense(t, s, alice.ID)

	entries := []*entity.StatusHistory{
		{ExpenseID: expense.ID, ActorID: alice.ID, Action: entity.ActionSubmit, NewStatus: entity.StatusPending, Timestamp: time.Now()},
		{ExpenseID: expense.ID, ActorID: alice.ID, Action: entity.ActionReject, PreviousStatus: entity.StatusPending, NewStatus: entity.StatusRejected, Comments: "no", Timestamp: time.Now()},
	}
	for _, e := range entries {
		require.NoError(t, s.History().Append(ctx, e))
		assert.NotZero(t, e.ID)
	}

	got, err := s.History().ListByExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entity.ActionSubmit, got[0].Action)
	assert.Empty(t, got[0].PreviousStatus)
	assert.Equal(t, entity.StatusRejected, got[1].NewStatus)
	assert.Equal(t, "no", got[1].Comments)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, s, "Alice", "alice@company.com", entity.RoleEmployee, nil)
	expense := createExpense(t, s, alice.ID)

	err := s.Transactions().WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Expenses().CompareAndSetStatus(txCtx, expense.ID, entity.StatusPending, entity.StatusApproved, "", time.Now()); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := s.Expenses().GetByID(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, got.Status)

	require.NoError(t, s.Ping(ctx))
}
