package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/domain/access"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// CurrencyTotal is a sum of amounts in one currency. Currencies are never converted.
type CurrencyTotal struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// Summary is the dashboard view of the expenses a user can see
type Summary struct {
	PendingCount      int             `json:"pending_count"`
	QueueCount        int             `json:"queue_count"`
	PendingTotals     []CurrencyTotal `json:"pending_totals"`
	ApprovedThisMonth []CurrencyTotal `json:"approved_this_month"`
}

func (s *expenseServiceImpl) Summarize(ctx context.Context, user *entity.User, filter access.StatusFilter) (*Summary, error) {
	view, err := s.ListVisibleExpenses(ctx, user, filter)
	if err != nil {
		return nil, err
	}
	return summarize(view, time.Now().UTC()), nil
}

// summarize counts approvals by the month of their last update. An approved expense
// is frozen, so UpdatedAt is the approval time; the expense date can be months older.
func summarize(view access.View, now time.Time) *Summary {
	pending := map[string]decimal.Decimal{}
	approved := map[string]decimal.Decimal{}
	sum := &Summary{}

	year, month, _ := now.Date()
	for _, entry := range view {
		e := entry.Expense
		switch e.Status {
		case entity.StatusPending:
			sum.PendingCount++
			if entry.Scope == access.ScopeQueue {
				sum.QueueCount++
			}
			pending[e.Currency] = pending[e.Currency].Add(e.Amount)
		case entity.StatusApproved:
			y, m, _ := e.UpdatedAt.UTC().Date()
			if y == year && m == month {
				approved[e.Currency] = approved[e.Currency].Add(e.Amount)
			}
		}
	}

	sum.PendingTotals = totals(pending)
	sum.ApprovedThisMonth = totals(approved)
	return sum
}

func totals(m map[string]decimal.Decimal) []CurrencyTotal {
	out := make([]CurrencyTotal, 0, len(m))
	for currency, amount := range m {
		out = append(out, CurrencyTotal{Currency: currency, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
