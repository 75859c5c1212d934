package access

import (
	"fmt"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Action is a mutating operation on an existing expense
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionEdit    Action = "edit"
)

var allActions = []Action{ActionApprove, ActionReject, ActionEdit}

// Authorize checks whether actor may perform action on expense, owned by owner.
//
// Relationship is checked before status, so a caller with no claim on the expense
// always gets ErrForbidden, while the rightful owner or approver of a decided
// expense gets ErrInvalidTransition.
func Authorize(actor *entity.User, expense *entity.Expense, owner *entity.User, action Action) error {
	if actor == nil || expense == nil {
		return fmt.Errorf("%w: no actor or expense", entity.ErrForbidden)
	}
	if actor.Role == entity.RoleAdmin {
		return fmt.Errorf("%w: admin cannot %s expenses", entity.ErrForbidden, action)
	}

	switch action {
	case ActionApprove, ActionReject:
		if expense.OwnerID == actor.ID {
			return fmt.Errorf("%w: cannot %s own expense", entity.ErrForbidden, action)
		}
		if owner == nil || owner.ID != expense.OwnerID || !owner.IsDirectSubordinateOf(actor.ID) {
			return fmt.Errorf("%w: expense %d is not from a direct report", entity.ErrForbidden, expense.ID)
		}
	case ActionEdit:
		if expense.OwnerID != actor.ID {
			return fmt.Errorf("%w: only the owner can edit expense %d", entity.ErrForbidden, expense.ID)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", entity.ErrForbidden, action)
	}

	if expense.Status != entity.StatusPending {
		return fmt.Errorf("%w: expense %d is %s", entity.ErrInvalidTransition, expense.ID, expense.Status)
	}

	return nil
}

// CanAct reports whether Authorize would allow the action
func CanAct(actor *entity.User, expense *entity.Expense, owner *entity.User, action Action) bool {
	return Authorize(actor, expense, owner, action) == nil
}

// PermittedActions lists the actions the presentation layer may offer
func PermittedActions(actor *entity.User, expense *entity.Expense, owner *entity.User) []Action {
	actions := make([]Action, 0, 2)
	for _, a := range allActions {
		if CanAct(actor, expense, owner, a) {
			actions = append(actions, a)
		}
	}
	return actions
}
