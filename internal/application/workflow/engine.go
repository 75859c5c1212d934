package workflow

import (
	"context"
	"strings"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

// Engine runs the expense lifecycle: submission, edits and approval decisions
type Engine interface {
	// Submit creates a PENDING expense owned by user
	Submit(ctx context.Context, user *entity.User, draft entity.Draft) (*entity.Expense, error)

	// Edit replaces the content of the user's own PENDING expense
	Edit(ctx context.Context, user *entity.User, id int64, patch entity.Draft) (*entity.Expense, error)

	// Decide approves or rejects a direct report's PENDING expense
	Decide(ctx context.Context, approver *entity.User, id int64, decision Decision, reason string) (*entity.Expense, error)
}

// Decision is an approver's verdict
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ParseDecision accepts a verb ("approve") or the target status ("APPROVED"), in any case
func ParseDecision(s string) (Decision, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVE", "APPROVED":
		return DecisionApprove, nil
	case "REJECT", "REJECTED":
		return DecisionReject, nil
	default:
		return "", entity.NewValidationError("status", "must be APPROVED or REJECTED")
	}
}

func (d Decision) trigger() domainwf.Trigger {
	if d == DecisionReject {
		return domainwf.TriggerReject
	}
	return domainwf.TriggerApprove
}
