// Package access decides which expenses a user can see and what they may do with them.
// Everything here is pure: callers load users and expenses and pass them in.
package access

import (
	"strings"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Scope says why an expense is visible to a user
type Scope string

const (
	// ScopeOwn marks the user's own expenses
	ScopeOwn Scope = "own"
	// ScopeQueue marks pending expenses of direct subordinates awaiting the user's decision
	ScopeQueue Scope = "queue"
	// ScopeCompany marks expenses visible through the read-only admin view
	ScopeCompany Scope = "company"
)

// Entry is one visible expense
type Entry struct {
	Expense *entity.Expense `json:"expense"`
	Scope   Scope           `json:"scope"`
}

// View is the ordered set of expenses a user can see, in storage order
type View []Entry

// Resolve computes what user can see from the full set of expenses and users.
// Input order is preserved.
func Resolve(user *entity.User, expenses []*entity.Expense, users []*entity.User) View {
	if user == nil {
		return View{}
	}

	view := make(View, 0)

	switch {
	case user.Role == entity.RoleAdmin:
		for _, e := range expenses {
			view = append(view, Entry{Expense: e, Scope: ScopeCompany})
		}

	case user.Role.IsApprover():
		reports := directReports(user.ID, users)
		for _, e := range expenses {
			switch {
			case e.OwnerID == user.ID:
				view = append(view, Entry{Expense: e, Scope: ScopeOwn})
			case reports[e.OwnerID] && e.Status == entity.StatusPending:
				view = append(view, Entry{Expense: e, Scope: ScopeQueue})
			}
		}

	default:
		for _, e := range expenses {
			if e.OwnerID == user.ID {
				view = append(view, Entry{Expense: e, Scope: ScopeOwn})
			}
		}
	}

	return view
}

// directReports returns the ids of users whose manager is managerID. One level only.
func directReports(managerID int64, users []*entity.User) map[int64]bool {
	reports := make(map[int64]bool)
	for _, u := range users {
		if u.IsDirectSubordinateOf(managerID) {
			reports[u.ID] = true
		}
	}
	return reports
}

// Expenses returns the expenses of the view
func (v View) Expenses() []*entity.Expense {
	out := make([]*entity.Expense, len(v))
	for i, entry := range v {
		out[i] = entry.Expense
	}
	return out
}

// Own returns the entries the user owns
func (v View) Own() View {
	return v.scoped(ScopeOwn)
}

// Queue returns the approval queue
func (v View) Queue() View {
	return v.scoped(ScopeQueue)
}

func (v View) scoped(scope Scope) View {
	out := make(View, 0, len(v))
	for _, entry := range v {
		if entry.Scope == scope {
			out = append(out, entry)
		}
	}
	return out
}

// Filter narrows the view to expenses matching f. It never adds entries.
func (v View) Filter(f StatusFilter) View {
	if f == FilterAll {
		return v
	}
	out := make(View, 0, len(v))
	for _, entry := range v {
		if f.Matches(entry.Expense.Status) {
			out = append(out, entry)
		}
	}
	return out
}

// StatusFilter narrows a view by status
type StatusFilter string

const (
	FilterAll      StatusFilter = "All"
	FilterPending  StatusFilter = "Pending"
	FilterApproved StatusFilter = "Approved"
	FilterRejected StatusFilter = "Rejected"
)

// ParseStatusFilter matches a filter case-insensitively; blank means All
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range []StatusFilter{FilterAll, FilterPending, FilterApproved, FilterRejected} {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", entity.NewValidationError("status", "must be one of All, Pending, Approved, Rejected")
}

// Matches reports whether an expense with status passes the filter
func (f StatusFilter) Matches(status entity.Status) bool {
	switch f {
	case FilterAll:
		return true
	case FilterPending:
		return status == entity.StatusPending
	case FilterApproved:
		return status == entity.StatusApproved
	case FilterRejected:
		return status == entity.StatusRejected
	default:
		return false
	}
}
