package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

func newTestLedger() (*Ledger, *memStore, *mockTxManager) {
	store := newMemStore()
	tx := &mockTxManager{}
	return NewLedger(memExpenses{store}, memHistory{store}, tx, &mockLogger{}), store, tx
}

func TestLedger_Create(t *testing.T) {
	l, store, _ := newTestLedger()
	owner := &entity.User{ID: 5}

	e, err := l.Create(context.Background(), owner, draft("Taxi", 20, " USD "))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == 0 || e.OwnerID != 5 || e.Status != entity.StatusPending {
		t.Errorf("created = %+v", e)
	}
	if e.Currency != "USD" {
		t.Errorf("Currency = %q, want trimmed", e.Currency)
	}
	if len(store.history) != 1 || store.history[0].Action != entity.ActionSubmit {
		t.Errorf("history = %+v", store.history)
	}
}

func TestLedger_SetStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		start    entity.Status
		next     entity.Status
		comments string
		wantErr  error
		wantCmt  string
	}{
		{"approve clears comments", entity.StatusPending, entity.StatusApproved, "nice", nil, ""},
		{"reject keeps reason", entity.StatusPending, entity.StatusRejected, " no receipt ", nil, " no receipt "},
		{"reject needs reason", entity.StatusPending, entity.StatusRejected, "  ", entity.ErrMissingReason, ""},
		{"approved is terminal", entity.StatusApproved, entity.StatusRejected, "late", entity.ErrInvalidTransition, ""},
		{"rejected is terminal", entity.StatusRejected, entity.StatusApproved, "", entity.ErrInvalidTransition, ""},
		{"pending is not a target", entity.StatusPending, entity.StatusPending, "", entity.ErrInvalidTransition, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store, _ := newTestLedger()
			store.expenses[1] = &entity.Expense{ID: 1, OwnerID: 5, Status: tt.start, Amount: decimal.NewFromInt(1)}

			got, err := l.SetStatus(ctx, 4, 1, entity.StatusPending, tt.next, tt.comments)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SetStatus() error = %v, want %v", err, tt.wantErr)
				}
				if store.expenses[1].Status != tt.start || len(store.history) != 0 {
					t.Error("failed SetStatus() changed state")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetStatus() error = %v", err)
			}
			if got.Status != tt.next || got.Comments != tt.wantCmt {
				t.Errorf("got %s %q, want %s %q", got.Status, got.Comments, tt.next, tt.wantCmt)
			}
		})
	}
}

func TestLedger_SetStatus_NotFound(t *testing.T) {
	l, _, _ := newTestLedger()
	_, err := l.SetStatus(context.Background(), 4, 99, entity.StatusPending, entity.StatusApproved, "")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("SetStatus() error = %v, want ErrNotFound", err)
	}
}

func TestLedger_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		l, _, _ := newTestLedger()
		if _, err := l.Update(ctx, 5, 99, draft("x", 1, "USD")); !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("terminal expense", func(t *testing.T) {
		l, store, _ := newTestLedger()
		store.expenses[1] = &entity.Expense{ID: 1, OwnerID: 5, Status: entity.StatusApproved, Description: "old"}
		if _, err := l.Update(ctx, 5, 1, draft("new", 1, "USD")); !errors.Is(err, entity.ErrInvalidTransition) {
			t.Errorf("Update() error = %v, want ErrInvalidTransition", err)
		}
		if store.expenses[1].Description != "old" {
			t.Error("terminal expense was modified")
		}
	})

	t.Run("transaction failure is reported", func(t *testing.T) {
		l, store, tx := newTestLedger()
		store.expenses[1] = &entity.Expense{ID: 1, OwnerID: 5, Status: entity.StatusPending}
		tx.commitErr = errors.New("commit failed")
		if _, err := l.Update(ctx, 5, 1, draft("new", 1, "USD")); err == nil {
			t.Error("expected commit error")
		}
	})
}
