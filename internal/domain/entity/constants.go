package entity

import "strings"

// Role identifies what a user may do in the approval flow
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
	RoleCFO      Role = "CFO"
	RoleDirector Role = "Director"
	RoleAdmin    Role = "Admin"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleCFO:      true,
	RoleDirector: true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsApprover returns true for roles that own an approval queue
func (r Role) IsApprover() bool {
	switch r {
	case RoleManager, RoleCFO, RoleDirector:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole matches a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for r := range validRoles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Status is the lifecycle status of an expense
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsValid returns true if the status is a known expense status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// ParseStatus matches a status case-insensitively ("Approved", "APPROVED", ...)
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", false
	}
	return st, true
}

// Category classifies an expense
type Category string

const (
	CategoryTravel         Category = "Travel"
	CategoryFood           Category = "Food"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategoryOther          Category = "Other"
)

// IsValid returns true if the category is one of the supported categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryTravel, CategoryFood, CategoryOfficeSupplies, CategoryOther:
		return true
	default:
		return false
	}
}

// History action types
const (
	ActionSubmit  = "SUBMIT"
	ActionEdit    = "EDIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// DateLayout is the wire format of an expense date
const DateLayout = "2006-01-02"
