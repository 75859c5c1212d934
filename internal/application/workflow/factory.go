package workflow

import (
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

var expenseMachine = newExpenseBuilder()

func newExpenseBuilder() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder()

	// PENDING is the only state with outgoing transitions
	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		PermitReentry(domainwf.TriggerEdit)

	// APPROVED and REJECTED are terminal states - no outgoing transitions

	return builder
}

// BuildExpenseStateMachine creates a state machine positioned at initialState
func BuildExpenseStateMachine(initialState domainwf.State) domainwf.StateMachine {
	return expenseMachine.Build(initialState)
}
