package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single expense claim in the ledger
type Expense struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Date        time.Time       `json:"date"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	Comments    string          `json:"comments,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a copy that can be mutated without touching the original
func (e *Expense) Clone() *Expense {
	c := *e
	return &c
}

// Apply replaces the owner-editable fields with the draft's values
func (e *Expense) Apply(d Draft) {
	e.Date = d.Date
	e.Category = d.Category
	e.Description = d.Description
	e.Amount = d.Amount
	e.Currency = strings.TrimSpace(d.Currency)
}

// Draft holds the owner-editable fields of an expense. It is used both for a new
// submission and as the full replacement on edit; status and owner are not part of it.
type Draft struct {
	Date        time.Time       `json:"date"`
	Category    Category        `json:"category" validate:"category"`
	Description string          `json:"description" validate:"notblank,max=2000"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Currency    string          `json:"currency" validate:"notblank,max=10"`
}

// Validate checks the draft for blank fields, a negative amount and an unknown category
func (d Draft) Validate() error {
	err := validateStruct(d)
	if d.Date.IsZero() {
		verr, ok := err.(*ValidationError)
		if !ok {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		verr.Fields["date"] = "is required"
		return verr
	}
	return err
}

// ParseDate parses a calendar date in DateLayout
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError("date", "must be a date formatted as YYYY-MM-DD")
	}
	return t, nil
}
