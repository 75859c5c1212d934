package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
)

const expenseColumns = `id, owner_id, expense_date, category, description, amount, currency,
	status, comments, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlite.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an expense and sets its ID
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			owner_id, expense_date, category, description, amount, currency,
			status, comments, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.OwnerID,
		expense.Date.Format(entity.DateLayout),
		string(expense.Category),
		expense.Description,
		expense.Amount.String(),
		expense.Currency,
		string(expense.Status),
		expense.Comments,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Int64("owner_id", expense.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := scanExpense(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: expense %d", entity.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// List returns every expense in insertion order
func (r *ExpenseRepository) List(ctx context.Context) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses ORDER BY id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*entity.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// UpdateContent rewrites the editable fields while the expense is still PENDING
func (r *ExpenseRepository) UpdateContent(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET expense_date = ?, category = ?, description = ?, amount = ?, currency = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.Date.Format(entity.DateLayout),
		string(expense.Category),
		expense.Description,
		expense.Amount.String(),
		expense.Currency,
		expense.UpdatedAt,
		expense.ID,
		string(entity.StatusPending),
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return r.explainNoop(ctx, result, expense.ID)
}

// CompareAndSetStatus updates the status only if it still equals expected
func (r *ExpenseRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, comments string, at time.Time) error {
	query := `
		UPDATE expenses
		SET status = ?, comments = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		string(next),
		comments,
		at,
		id,
		string(expected),
	)
	if err != nil {
		r.logger.Error("Failed to set expense status",
			zap.Int64("id", id),
			zap.String("status", next.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set expense status: %w", err)
	}

	return r.explainNoop(ctx, result, id)
}

// explainNoop turns an UPDATE that matched no row into ErrNotFound or ErrInvalidTransition
func (r *ExpenseRepository) explainNoop(ctx context.Context, result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.Executor(ctx).QueryRowContext(ctx, `SELECT status FROM expenses WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: expense %d", entity.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read expense status: %w", err)
	}
	return fmt.Errorf("%w: expense %d is %s", entity.ErrInvalidTransition, id, status)
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		expense  entity.Expense
		date     string
		category string
		status   string
	)

	err := row.Scan(
		&expense.ID,
		&expense.OwnerID,
		&date,
		&category,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&status,
		&expense.Comments,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.Date, err = time.Parse(entity.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	expense.Category = entity.Category(category)
	expense.Status = entity.Status(status)
	return &expense, nil
}

var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
