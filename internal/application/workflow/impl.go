package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/domain/access"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/event"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

// Directory resolves users
type Directory interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
}

// Ledger stores expenses
type Ledger interface {
	Get(ctx context.Context, id int64) (*entity.Expense, error)
	Create(ctx context.Context, owner *entity.User, draft entity.Draft) (*entity.Expense, error)
	Update(ctx context.Context, actorID, id int64, patch entity.Draft) (*entity.Expense, error)
	SetStatus(ctx context.Context, actorID, id int64, expected, next entity.Status, comments string) (*entity.Expense, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type correlationKey struct{}

// WithCorrelationID tags events published while handling ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

type engineImpl struct {
	directory Directory
	ledger    Ledger
	publisher dispatcher.Publisher
	logger    Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithPublisher sets where lifecycle events are published
func WithPublisher(p dispatcher.Publisher) EngineOption {
	return func(e *engineImpl) {
		e.publisher = p
	}
}

// NewEngine creates a new workflow engine
func NewEngine(directory Directory, ledger Ledger, logger Logger, opts ...EngineOption) Engine {
	e := &engineImpl{
		directory: directory,
		ledger:    ledger,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Submit(ctx context.Context, user *entity.User, draft entity.Draft) (*entity.Expense, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: no user", entity.ErrForbidden)
	}
	if user.Role == entity.RoleAdmin {
		return nil, fmt.Errorf("%w: admin cannot submit expenses", entity.ErrForbidden)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	expense, err := e.ledger.Create(ctx, user, draft)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, event.TypeExpenseSubmitted, user.ID, expense, "")
	return expense, nil
}

func (e *engineImpl) Edit(ctx context.Context, user *entity.User, id int64, patch entity.Draft) (*entity.Expense, error) {
	expense, owner, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(user, expense, owner, access.ActionEdit); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.fire(ctx, expense, domainwf.TriggerEdit); err != nil {
		return nil, err
	}

	updated, err := e.ledger.Update(ctx, user.ID, id, patch)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, event.TypeExpenseUpdated, user.ID, updated, "")
	return updated, nil
}

func (e *engineImpl) Decide(ctx context.Context, approver *entity.User, id int64, decision Decision, reason string) (*entity.Expense, error) {
	action := access.ActionApprove
	if decision == DecisionReject {
		action = access.ActionReject
	} else if decision != DecisionApprove {
		return nil, entity.NewValidationError("status", "must be APPROVED or REJECTED")
	}

	expense, owner, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(approver, expense, owner, action); err != nil {
		e.logger.Info("Decision refused", "expense_id", id, "approver_id", approverID(approver), "reason", err.Error())
		return nil, err
	}
	if decision == DecisionReject && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: expense %d", entity.ErrMissingReason, id)
	}

	next, err := e.fire(ctx, expense, decision.trigger())
	if err != nil {
		return nil, err
	}

	// The ledger compares against PENDING again, so a concurrent decision that
	// landed after load() makes this call fail with ErrInvalidTransition.
	updated, err := e.ledger.SetStatus(ctx, approver.ID, id, expense.Status, entity.Status(next), reason)
	if err != nil {
		return nil, err
	}

	evtType := event.TypeExpenseApproved
	if decision == DecisionReject {
		evtType = event.TypeExpenseRejected
	}
	e.publish(ctx, evtType, approver.ID, updated, expense.Status)

	return updated, nil
}

func (e *engineImpl) load(ctx context.Context, id int64) (*entity.Expense, *entity.User, error) {
	expense, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	owner, err := e.directory.FindByID(ctx, expense.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load owner of expense %d: %w", id, err)
	}
	return expense, owner, nil
}

// fire checks the trigger against the lifecycle machine positioned at the stored status
func (e *engineImpl) fire(ctx context.Context, expense *entity.Expense, trigger domainwf.Trigger) (domainwf.State, error) {
	state := domainwf.State(expense.Status)
	if !state.IsValid() {
		return "", fmt.Errorf("expense %d has unknown status %q", expense.ID, expense.Status)
	}

	next, err := BuildExpenseStateMachine(state).Fire(ctx, trigger)
	if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrGuardFailed) {
		return "", fmt.Errorf("%w: %v", entity.ErrInvalidTransition, err)
	}
	return next, err
}

// publish delivers the event synchronously. Subscriber failures are logged and
// never undo a committed change.
func (e *engineImpl) publish(ctx context.Context, t event.Type, actorID int64, expense *entity.Expense, previous entity.Status) {
	if e.publisher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyNewStatus: expense.Status.String(),
		event.KeyOwnerID:   expense.OwnerID,
	}
	if previous != "" {
		payload[event.KeyPreviousStatus] = previous.String()
	}
	if expense.Comments != "" {
		payload[event.KeyComments] = expense.Comments
	}

	evt := event.NewEventWithCorrelation(t, expense.ID, actorID, payload, correlationID(ctx))
	if err := e.publisher.Dispatch(ctx, evt); err != nil {
		e.logger.Error("Failed to publish event", "event_type", t, "expense_id", expense.ID, "error", err)
	}
}

func approverID(u *entity.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
