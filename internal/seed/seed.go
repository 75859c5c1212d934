// Package seed loads the sample organisation and its expenses.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

type sampleUser struct {
	name    string
	email   string
	role    entity.Role
	manager string
}

type sampleExpense struct {
	owner       string
	date        string
	category    entity.Category
	description string
	amount      string
	currency    string
	status      entity.Status
	comments    string
}

// Users are listed managers first so every manager exists before its reports
var users = []sampleUser{
	{"Admin User", "admin@company.com", entity.RoleAdmin, ""},
	{"Diana Director", "director@company.com", entity.RoleDirector, "admin@company.com"},
	{"Charles CFO", "cfo@company.com", entity.RoleCFO, "director@company.com"},
	{"John Manager", "manager@company.com", entity.RoleManager, "cfo@company.com"},
	{"Alice Employee", "employee@company.com", entity.RoleEmployee, "manager@company.com"},
	{"Bob Employee", "employee2@company.com", entity.RoleEmployee, "manager@company.com"},
}

var expenses = []sampleExpense{
	{"employee@company.com", "2025-10-03", entity.CategoryFood, "Client Lunch", "55.50", "USD", entity.StatusApproved, ""},
	{"employee@company.com", "2025-10-02", entity.CategoryTravel, "Taxi to Airport", "40.00", "USD", entity.StatusRejected,
		"Receipt was not clear. Please resubmit with a valid receipt."},
	{"employee2@company.com", "2025-10-04", entity.CategoryOfficeSupplies, "New Keyboard and Mouse", "75.00", "USD", entity.StatusPending, ""},
	{"manager@company.com", "2025-10-05", entity.CategoryTravel, "Flight to Conference", "450.00", "EUR", entity.StatusPending, ""},
	{"cfo@company.com", "2025-10-06", entity.CategoryOther, "Industry Subscription Renewal", "1200.00", "USD", entity.StatusPending, ""},
	{"employee@company.com", "2025-09-15", entity.CategoryFood, "Team Dinner", "185.00", "USD", entity.StatusApproved, ""},
}

// Result reports what Load wrote
type Result struct {
	Users    int
	Expenses int
	Skipped  bool
}

// Loader writes the sample data through the real directory and engine, so
// decided samples carry the same history a live decision would.
type Loader struct {
	directory *service.Directory
	engine    workflow.Engine
	hasher    port.CredentialHasher
	logger    service.Logger
}

// NewLoader creates a seed loader
func NewLoader(directory *service.Directory, engine workflow.Engine, hasher port.CredentialHasher, logger service.Logger) *Loader {
	return &Loader{
		directory: directory,
		engine:    engine,
		hasher:    hasher,
		logger:    logger,
	}
}

// Load seeds an empty directory. Every sample user gets password as credential.
// A directory that already has users is left untouched.
func (l *Loader) Load(ctx context.Context, password string) (*Result, error) {
	existing, err := l.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		l.logger.Info("Directory not empty, skipping seed", "users", len(existing))
		return &Result{Skipped: true}, nil
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	byEmail := make(map[string]*entity.User, len(users))
	for _, su := range users {
		user := &entity.User{
			Name:           su.name,
			Email:          su.email,
			Role:           su.role,
			CredentialHash: hash,
		}
		if su.manager != "" {
			id := byEmail[su.manager].ID
			user.ManagerID = &id
		}

		created, err := l.directory.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("create user %s: %w", su.email, err)
		}
		byEmail[su.email] = created
	}

	for _, se := range expenses {
		if err := l.addExpense(ctx, se, byEmail); err != nil {
			return nil, err
		}
	}

	l.logger.Info("Sample data loaded", "users", len(users), "expenses", len(expenses))
	return &Result{Users: len(users), Expenses: len(expenses)}, nil
}

func (l *Loader) addExpense(ctx context.Context, se sampleExpense, byEmail map[string]*entity.User) error {
	owner := byEmail[se.owner]

	date, err := entity.ParseDate(se.date)
	if err != nil {
		return err
	}
	draft := entity.Draft{
		Date:        date,
		Category:    se.category,
		Description: se.description,
		Amount:      decimal.RequireFromString(se.amount),
		Currency:    se.currency,
	}

	expense, err := l.engine.Submit(ctx, owner, draft)
	if err != nil {
		return fmt.Errorf("submit %q: %w", se.description, err)
	}

	var decision workflow.Decision
	switch se.status {
	case entity.StatusApproved:
		decision = workflow.DecisionApprove
	case entity.StatusRejected:
		decision = workflow.DecisionReject
	default:
		return nil
	}

	if owner.ManagerID == nil {
		return fmt.Errorf("sample %q is decided but its owner has no manager", se.description)
	}
	manager, err := l.directory.FindByID(ctx, *owner.ManagerID)
	if err != nil {
		return err
	}

	if _, err := l.engine.Decide(ctx, manager, expense.ID, decision, se.comments); err != nil {
		return fmt.Errorf("decide %q: %w", se.description, err)
	}
	return nil
}
