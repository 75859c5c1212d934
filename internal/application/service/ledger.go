package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Ledger holds expenses and their status history. Every mutation and its
// history entry are written in one transaction.
type Ledger struct {
	expenses  port.ExpenseRepository
	history   port.HistoryRepository
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewLedger creates a Ledger
func NewLedger(
	expenses port.ExpenseRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
) *Ledger {
	return &Ledger{
		expenses:  expenses,
		history:   history,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns entity.ErrNotFound for an unknown id
func (l *Ledger) Get(ctx context.Context, id int64) (*entity.Expense, error) {
	return l.expenses.GetByID(ctx, id)
}

// List returns every expense in storage order
func (l *Ledger) List(ctx context.Context) ([]*entity.Expense, error) {
	return l.expenses.List(ctx)
}

// History returns the audit trail of an expense, oldest first
func (l *Ledger) History(ctx context.Context, id int64) ([]*entity.StatusHistory, error) {
	if _, err := l.expenses.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return l.history.ListByExpense(ctx, id)
}

// Create records a new PENDING expense owned by owner
func (l *Ledger) Create(ctx context.Context, owner *entity.User, draft entity.Draft) (*entity.Expense, error) {
	now := l.now().UTC()
	expense := &entity.Expense{
		OwnerID:   owner.ID,
		Status:    entity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	expense.Apply(draft)

	err := l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := l.expenses.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return l.record(txCtx, expense.ID, owner.ID, entity.ActionSubmit, "", entity.StatusPending, "", now)
	})
	if err != nil {
		l.logger.Error("Failed to create expense", "error", err, "owner_id", owner.ID)
		return nil, err
	}

	l.logger.Info("Expense created", "id", expense.ID, "owner_id", owner.ID, "amount", expense.Amount.String(), "currency", expense.Currency)
	return expense, nil
}

// Update replaces the content of a PENDING expense
func (l *Ledger) Update(ctx context.Context, actorID, id int64, patch entity.Draft) (*entity.Expense, error) {
	var updated *entity.Expense

	err := l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := l.expenses.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if current.Status != entity.StatusPending {
			return fmt.Errorf("%w: expense %d is %s", entity.ErrInvalidTransition, id, current.Status)
		}

		now := l.now().UTC()
		next := current.Clone()
		next.Apply(patch)
		next.UpdatedAt = now

		if err := l.expenses.UpdateContent(txCtx, next); err != nil {
			return err
		}
		if err := l.record(txCtx, id, actorID, entity.ActionEdit, current.Status, current.Status, "", now); err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to update expense", "error", err, "id", id)
		return nil, err
	}

	l.logger.Info("Expense updated", "id", id, "actor_id", actorID)
	return updated, nil
}

// SetStatus moves expense id from expected to next. Rejections need non-blank
// comments, stored as given; approvals clear them.
func (l *Ledger) SetStatus(ctx context.Context, actorID, id int64, expected, next entity.Status, comments string) (*entity.Expense, error) {
	switch next {
	case entity.StatusApproved:
		comments = ""
	case entity.StatusRejected:
		if strings.TrimSpace(comments) == "" {
			return nil, fmt.Errorf("%w: expense %d", entity.ErrMissingReason, id)
		}
	default:
		return nil, fmt.Errorf("%w: cannot move expense %d to %s", entity.ErrInvalidTransition, id, next)
	}

	action := entity.ActionApprove
	if next == entity.StatusRejected {
		action = entity.ActionReject
	}

	var updated *entity.Expense
	err := l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := l.now().UTC()
		if err := l.expenses.CompareAndSetStatus(txCtx, id, expected, next, comments, now); err != nil {
			return err
		}
		if err := l.record(txCtx, id, actorID, action, expected, next, comments, now); err != nil {
			return err
		}

		e, err := l.expenses.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("reload expense: %w", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to set expense status", "error", err, "id", id, "status", next)
		return nil, err
	}

	l.logger.Info("Expense status changed", "id", id, "actor_id", actorID, "from", expected, "to", next)
	return updated, nil
}

func (l *Ledger) record(ctx context.Context, expenseID, actorID int64, action string, from, to entity.Status, comments string, at time.Time) error {
	entry := &entity.StatusHistory{
		ExpenseID:      expenseID,
		ActorID:        actorID,
		Action:         action,
		PreviousStatus: from,
		NewStatus:      to,
		Comments:       comments,
		Timestamp:      at,
	}
	if err := l.history.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
