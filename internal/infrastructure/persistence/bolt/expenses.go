package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	store *Store
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	return r.store.update(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketExpenses)
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next expense id: %w", err)
		}

		stored := expense.Clone()
		stored.ID = int64(seq)
		if err := putExpense(tx, stored); err != nil {
			return err
		}

		expense.ID = stored.ID
		return nil
	})
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	var expense *entity.Expense
	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		expense, err = getExpense(tx, id)
		return err
	})
	return expense, err
}

// List walks the bucket in key order, which is ascending ID
func (r *ExpenseRepository) List(ctx context.Context) ([]*entity.Expense, error) {
	expenses := make([]*entity.Expense, 0)
	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExpenses).ForEach(func(_, v []byte) error {
			var expense entity.Expense
			if err := json.Unmarshal(v, &expense); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &expense)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepository) UpdateContent(ctx context.Context, expense *entity.Expense) error {
	return r.store.update(ctx, func(tx *bbolt.Tx) error {
		current, err := getExpense(tx, expense.ID)
		if err != nil {
			return err
		}
		if current.Status != entity.StatusPending {
			return fmt.Errorf("%w: expense %d is %s", entity.ErrInvalidTransition, expense.ID, current.Status)
		}

		current.Date = expense.Date
		current.Category = expense.Category
		current.Description = expense.Description
		current.Amount = expense.Amount
		current.Currency = expense.Currency
		current.UpdatedAt = expense.UpdatedAt
		return putExpense(tx, current)
	})
}

// CompareAndSetStatus reads and writes inside one bolt write transaction
func (r *ExpenseRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, comments string, at time.Time) error {
	return r.store.update(ctx, func(tx *bbolt.Tx) error {
		current, err := getExpense(tx, id)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return fmt.Errorf("%w: expense %d is %s", entity.ErrInvalidTransition, id, current.Status)
		}

		current.Status = next
		current.Comments = comments
		current.UpdatedAt = at
		return putExpense(tx, current)
	})
}

func getExpense(tx *bbolt.Tx, id int64) (*entity.Expense, error) {
	data := tx.Bucket(bucketExpenses).Get(itob(id))
	if data == nil {
		return nil, fmt.Errorf("%w: expense %d", entity.ErrNotFound, id)
	}
	var expense entity.Expense
	if err := json.Unmarshal(data, &expense); err != nil {
		return nil, fmt.Errorf("unmarshaling expense: %w", err)
	}
	return &expense, nil
}

func putExpense(tx *bbolt.Tx, expense *entity.Expense) error {
	data, err := json.Marshal(expense)
	if err != nil {
		return fmt.Errorf("marshaling expense: %w", err)
	}
	return tx.Bucket(bucketExpenses).Put(itob(expense.ID), data)
}

var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
