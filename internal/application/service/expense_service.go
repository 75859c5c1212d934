package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/access"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ExpenseService is the entry point used by transports
type ExpenseService interface {
	// Login fails with entity.ErrAuth without saying whether the email or the credential was wrong
	Login(ctx context.Context, email, credential string) (*entity.User, error)
	Register(ctx context.Context, reg entity.Registration) (*entity.User, error)
	// Whoami resolves an authenticated caller id; unknown ids fail with entity.ErrAuth
	Whoami(ctx context.Context, userID int64) (*entity.User, error)

	ListVisibleExpenses(ctx context.Context, user *entity.User, filter access.StatusFilter) (access.View, error)
	// GetExpense returns entity.ErrNotFound for expenses the user cannot see
	GetExpense(ctx context.Context, user *entity.User, id int64) (*entity.Expense, error)
	ExpenseHistory(ctx context.Context, user *entity.User, id int64) ([]*entity.StatusHistory, error)
	// PermittedActions returns the actions user may take, keyed by expense id
	PermittedActions(ctx context.Context, user *entity.User, expenses []*entity.Expense) (map[int64][]access.Action, error)

	SubmitExpense(ctx context.Context, user *entity.User, draft entity.Draft) (*entity.Expense, error)
	EditExpense(ctx context.Context, user *entity.User, id int64, patch entity.Draft) (*entity.Expense, error)
	DecideExpense(ctx context.Context, approver *entity.User, id int64, decision workflow.Decision, reason string) (*entity.Expense, error)

	Summarize(ctx context.Context, user *entity.User, filter access.StatusFilter) (*Summary, error)
}

type expenseServiceImpl struct {
	directory    *Directory
	ledger       *Ledger
	engine       workflow.Engine
	hasher       port.CredentialHasher
	policy       port.ManagerAssignmentPolicy
	allowedRoles map[entity.Role]bool
	logger       Logger

	// compared against when the email is unknown so both failures cost the same
	dummyHash string
}

// ExpenseServiceConfig holds the collaborators of the expense service
type ExpenseServiceConfig struct {
	Directory *Directory
	Ledger    *Ledger
	Engine    workflow.Engine
	Hasher    port.CredentialHasher
	Policy    port.ManagerAssignmentPolicy
	// AllowedRoles limits self-registration; empty allows Employee and Manager
	AllowedRoles []entity.Role
	Logger       Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(cfg ExpenseServiceConfig) (ExpenseService, error) {
	roles := cfg.AllowedRoles
	if len(roles) == 0 {
		roles = []entity.Role{entity.RoleEmployee, entity.RoleManager}
	}
	allowed := make(map[entity.Role]bool, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			return nil, fmt.Errorf("unknown role in allowed roles: %q", r)
		}
		allowed[r] = true
	}

	policy := cfg.Policy
	if policy == nil {
		policy = NoManager{}
	}

	dummy, err := cfg.Hasher.Hash("not-a-real-credential")
	if err != nil {
		return nil, fmt.Errorf("prepare credential check: %w", err)
	}

	return &expenseServiceImpl{
		directory:    cfg.Directory,
		ledger:       cfg.Ledger,
		engine:       cfg.Engine,
		hasher:       cfg.Hasher,
		policy:       policy,
		allowedRoles: allowed,
		logger:       cfg.Logger,
		dummyHash:    dummy,
	}, nil
}

func (s *expenseServiceImpl) Login(ctx context.Context, email, credential string) (*entity.User, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			s.logger.Error("Login lookup failed", "error", err)
			return nil, err
		}
		_ = s.hasher.Compare(s.dummyHash, credential)
		return nil, entity.ErrAuth
	}

	if err := s.hasher.Compare(user.CredentialHash, credential); err != nil {
		s.logger.Info("Login rejected", "user_id", user.ID)
		return nil, entity.ErrAuth
	}

	s.logger.Info("Login succeeded", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *expenseServiceImpl) Register(ctx context.Context, reg entity.Registration) (*entity.User, error) {
	if role, ok := entity.ParseRole(string(reg.Role)); ok {
		reg.Role = role
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	if !s.allowedRoles[reg.Role] {
		return nil, entity.NewValidationError("role", "is not open for self-registration")
	}

	managerID, err := s.policy.AssignManager(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("assign manager: %w", err)
	}

	hash, err := s.hasher.Hash(reg.Credential)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	return s.directory.Create(ctx, &entity.User{
		Name:           reg.Name,
		Email:          reg.Email,
		Role:           reg.Role,
		CredentialHash: hash,
		ManagerID:      managerID,
	})
}

func (s *expenseServiceImpl) Whoami(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.directory.FindByID(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrAuth
	}
	return user, err
}

func (s *expenseServiceImpl) ListVisibleExpenses(ctx context.Context, user *entity.User, filter access.StatusFilter) (access.View, error) {
	expenses, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	var users []*entity.User
	if user.Role.IsApprover() {
		// Only approvers need the org chart
		if users, err = s.directory.SubordinatesOf(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("list subordinates: %w", err)
		}
	}

	return access.Resolve(user, expenses, users).Filter(filter), nil
}

func (s *expenseServiceImpl) GetExpense(ctx context.Context, user *entity.User, id int64) (*entity.Expense, error) {
	expense, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSee(ctx, user, expense) {
		return nil, fmt.Errorf("%w: expense %d", entity.ErrNotFound, id)
	}
	return expense, nil
}

func (s *expenseServiceImpl) ExpenseHistory(ctx context.Context, user *entity.User, id int64) ([]*entity.StatusHistory, error) {
	if _, err := s.GetExpense(ctx, user, id); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, id)
}

// canSee applies the visibility rules to a single expense
func (s *expenseServiceImpl) canSee(ctx context.Context, user *entity.User, expense *entity.Expense) bool {
	var users []*entity.User
	if user.Role.IsApprover() && expense.OwnerID != user.ID {
		owner, err := s.directory.FindByID(ctx, expense.OwnerID)
		if err != nil {
			return false
		}
		users = []*entity.User{owner}
	}
	return len(access.Resolve(user, []*entity.Expense{expense}, users)) == 1
}

func (s *expenseServiceImpl) PermittedActions(ctx context.Context, user *entity.User, expenses []*entity.Expense) (map[int64][]access.Action, error) {
	owners := make(map[int64]*entity.User)
	result := make(map[int64][]access.Action, len(expenses))

	for _, e := range expenses {
		owner, ok := owners[e.OwnerID]
		if !ok {
			u, err := s.directory.FindByID(ctx, e.OwnerID)
			if err != nil {
				return nil, fmt.Errorf("load owner %d: %w", e.OwnerID, err)
			}
			owners[e.OwnerID] = u
			owner = u
		}
		result[e.ID] = access.PermittedActions(user, e, owner)
	}
	return result, nil
}

func (s *expenseServiceImpl) SubmitExpense(ctx context.Context, user *entity.User, draft entity.Draft) (*entity.Expense, error) {
	return s.engine.Submit(ctx, user, draft)
}

func (s *expenseServiceImpl) EditExpense(ctx context.Context, user *entity.User, id int64, patch entity.Draft) (*entity.Expense, error) {
	return s.engine.Edit(ctx, user, id, patch)
}

func (s *expenseServiceImpl) DecideExpense(ctx context.Context, approver *entity.User, id int64, decision workflow.Decision, reason string) (*entity.Expense, error) {
	return s.engine.Decide(ctx, approver, id, decision, reason)
}
