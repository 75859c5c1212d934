// Package notification turns expense lifecycle events into toasts shown to users.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// Variant is the visual style of a toast
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantDanger  Variant = "danger"
)

// Toast is one pending notification for a user
type Toast struct {
	ID        string    `json:"id"`
	ExpenseID int64     `json:"expense_id"`
	NewStatus string    `json:"new_status"`
	Message   string    `json:"message"`
	Variant   Variant   `json:"variant"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultCapacity is the number of undelivered toasts kept per user
const DefaultCapacity = 50

// Feed queues toasts per user until they are drained
type Feed struct {
	mu       sync.Mutex
	queues   map[int64][]Toast
	capacity int
	logger   *zap.Logger
}

// NewFeed creates a toast feed. A capacity below one uses DefaultCapacity.
func NewFeed(capacity int, logger *zap.Logger) *Feed {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Feed{
		queues:   make(map[int64][]Toast),
		capacity: capacity,
		logger:   logger,
	}
}

// EventTypes lists the events the feed should be subscribed to
func EventTypes() []event.Type {
	return []event.Type{
		event.TypeExpenseSubmitted,
		event.TypeExpenseUpdated,
		event.TypeExpenseApproved,
		event.TypeExpenseRejected,
	}
}

// Handle is a dispatcher handler. Decisions notify both the approver and the owner;
// submissions and edits notify the actor.
func (f *Feed) Handle(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("nil event")
	}

	newStatus := evt.GetPayloadString(event.KeyNewStatus)
	toast := Toast{
		ID:        evt.ID,
		ExpenseID: evt.ExpenseID,
		NewStatus: newStatus,
		CreatedAt: evt.Timestamp,
	}

	switch evt.Type {
	case event.TypeExpenseSubmitted:
		toast.Message = "New expense submitted!"
		toast.Variant = VariantSuccess
		f.push(evt.ActorID, toast)

	case event.TypeExpenseUpdated:
		toast.Message = "Expense updated successfully!"
		toast.Variant = VariantInfo
		f.push(evt.ActorID, toast)

	case event.TypeExpenseApproved, event.TypeExpenseRejected:
		toast.Message = fmt.Sprintf("Expense has been %s.", strings.ToLower(newStatus))
		toast.Variant = VariantSuccess
		if evt.Type == event.TypeExpenseRejected {
			toast.Variant = VariantDanger
		}
		f.push(evt.ActorID, toast)
		if owner := evt.GetPayloadInt(event.KeyOwnerID); owner != 0 && owner != evt.ActorID {
			f.push(owner, toast)
		}

	default:
		return nil
	}

	f.logger.Debug("Toast queued",
		zap.String("event_type", evt.Type.String()),
		zap.Int64("expense_id", evt.ExpenseID),
		zap.Int64("actor_id", evt.ActorID))
	return nil
}

func (f *Feed) push(userID int64, toast Toast) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := append(f.queues[userID], toast)
	if len(q) > f.capacity {
		dropped := len(q) - f.capacity
		q = append([]Toast(nil), q[dropped:]...)
		f.logger.Warn("Toast queue full, dropping oldest",
			zap.Int64("user_id", userID),
			zap.Int("dropped", dropped))
	}
	f.queues[userID] = q
}

// Drain returns and forgets the pending toasts of a user, oldest first
func (f *Feed) Drain(userID int64) []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := f.queues[userID]
	delete(f.queues, userID)
	if q == nil {
		return []Toast{}
	}
	return q
}

// Pending returns how many toasts are waiting for a user
func (f *Feed) Pending(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[userID])
}
