package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted Type = "expense.submitted"
	TypeExpenseUpdated   Type = "expense.updated"
	TypeExpenseApproved  Type = "expense.approved"
	TypeExpenseRejected  Type = "expense.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseUpdated,
		TypeExpenseApproved,
		TypeExpenseRejected:
		return true
	default:
		return false
	}
}

// IsDecision reports whether the event records an approver's decision
func (t Type) IsDecision() bool {
	return t == TypeExpenseApproved || t == TypeExpenseRejected
}
