package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/domain/event"
)

func decision(t event.Type, expenseID, actor, owner int64, status string) *event.Event {
	return event.NewEvent(t, expenseID, actor, map[string]interface{}{
		event.KeyNewStatus: status,
		event.KeyOwnerID:   owner,
	})
}

func TestFeed_DecisionNotifiesActorAndOwner(t *testing.T) {
	feed := NewFeed(0, zap.NewNop())

	err := feed.Handle(context.Background(), decision(event.TypeExpenseRejected, 7, 4, 5, "REJECTED"))
	require.NoError(t, err)

	for _, user := range []int64{4, 5} {
		toasts := feed.Drain(user)
		require.Len(t, toasts, 1, "user %d", user)
		assert.Equal(t, int64(7), toasts[0].ExpenseID)
		assert.Equal(t, "REJECTED", toasts[0].NewStatus)
		assert.Equal(t, "Expense has been rejected.", toasts[0].Message)
		assert.Equal(t, VariantDanger, toasts[0].Variant)
	}

	assert.Empty(t, feed.Drain(4), "drain must empty the queue")
}

func TestFeed_ApprovedVariant(t *testing.T) {
	feed := NewFeed(0, zap.NewNop())
	require.NoError(t, feed.Handle(context.Background(), decision(event.TypeExpenseApproved, 1, 4, 5, "APPROVED")))

	toasts := feed.Drain(5)
	require.Len(t, toasts, 1)
	assert.Equal(t, VariantSuccess, toasts[0].Variant)
	assert.Equal(t, "Expense has been approved.", toasts[0].Message)
}

func TestFeed_SubmissionNotifiesActorOnly(t *testing.T) {
	feed := NewFeed(0, zap.NewNop())
	evt := event.NewEvent(event.TypeExpenseSubmitted, 3, 5, map[string]interface{}{
		event.KeyNewStatus: "PENDING",
		event.KeyOwnerID:   int64(5),
	})

	require.NoError(t, feed.Handle(context.Background(), evt))
	assert.Equal(t, 1, feed.Pending(5))
	assert.Equal(t, "New expense submitted!", feed.Drain(5)[0].Message)
}

func TestFeed_CapacityDropsOldest(t *testing.T) {
	feed := NewFeed(2, zap.NewNop())
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, feed.Handle(ctx, decision(event.TypeExpenseApproved, id, 4, 4, "APPROVED")))
	}

	toasts := feed.Drain(4)
	require.Len(t, toasts, 2)
	assert.Equal(t, int64(2), toasts[0].ExpenseID)
	assert.Equal(t, int64(3), toasts[1].ExpenseID)
}

func TestFeed_ThroughDispatcher(t *testing.T) {
	feed := NewFeed(0, zap.NewNop())
	d := dispatcher.NewDispatcher()
	d.Subscribe("toast-feed", feed.Handle, EventTypes()...)

	require.NoError(t, d.Dispatch(context.Background(), decision(event.TypeExpenseApproved, 9, 4, 5, "APPROVED")))
	assert.Equal(t, 1, feed.Pending(4))
	assert.Equal(t, 1, feed.Pending(5))
}
