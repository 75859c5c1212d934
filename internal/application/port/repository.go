package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// UserRepository defines persistence operations for User.
// Lookups of a missing user return entity.ErrNotFound.
type UserRepository interface {
	// Create assigns an ID to user. A taken email fails with entity.ErrDuplicateEmail.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	// GetByEmail matches the normalized email
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// ListByManager returns the direct reports of managerID
	ListByManager(ctx context.Context, managerID int64) ([]*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	// Create assigns an ID to expense and stores it as given
	Create(ctx context.Context, expense *entity.Expense) error

	GetByID(ctx context.Context, id int64) (*entity.Expense, error)

	// List returns every expense in storage order (ascending ID)
	List(ctx context.Context) ([]*entity.Expense, error)

	// UpdateContent overwrites the owner-editable fields of a PENDING expense.
	// It fails with entity.ErrNotFound if the expense is missing and with
	// entity.ErrInvalidTransition if it is no longer PENDING.
	UpdateContent(ctx context.Context, expense *entity.Expense) error

	// CompareAndSetStatus moves expense id from expected to next in one atomic step.
	// When the stored status is not expected nothing is written and
	// entity.ErrInvalidTransition is returned.
	CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, comments string, at time.Time) error
}

// HistoryRepository defines persistence operations for StatusHistory
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistory) error
	// ListByExpense returns the trail oldest first
	ListByExpense(ctx context.Context, expenseID int64) ([]*entity.StatusHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
