package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"

	// TriggerEdit keeps the expense in its state; it is only permitted while pending
	TriggerEdit Trigger = "EDIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
