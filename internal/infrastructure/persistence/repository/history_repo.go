package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append creates a new history record
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StatusHistory) error {
	query := `
		INSERT INTO expense_history (
			expense_id, actor_id, action, previous_status, new_status, comments, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entry.ExpenseID,
		entry.ActorID,
		entry.Action,
		string(entry.PreviousStatus),
		string(entry.NewStatus),
		entry.Comments,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("expense_id", entry.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByExpense retrieves the history of an expense, oldest first
func (r *HistoryRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, expense_id, actor_id, action, previous_status, new_status, comments, timestamp
		FROM expense_history
		WHERE expense_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.StatusHistory, 0)
	for rows.Next() {
		var (
			record   entity.StatusHistory
			previous string
			next     string
		)
		err := rows.Scan(
			&record.ID,
			&record.ExpenseID,
			&record.ActorID,
			&record.Action,
			&previous,
			&next,
			&record.Comments,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.PreviousStatus = entity.Status(previous)
		record.NewStatus = entity.Status(next)
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
