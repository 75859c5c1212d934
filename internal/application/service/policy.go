package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// NoManager leaves self-registered users without a manager
type NoManager struct{}

// AssignManager always returns nil
func (NoManager) AssignManager(ctx context.Context, reg entity.Registration) (*int64, error) {
	return nil, nil
}

// FixedManager assigns every self-registered user to one configured manager
type FixedManager struct {
	users port.UserRepository
	email string
}

// NewFixedManager creates a policy that looks the manager up by email at registration time
func NewFixedManager(users port.UserRepository, email string) *FixedManager {
	return &FixedManager{users: users, email: entity.NormalizeEmail(email)}
}

// AssignManager returns the configured manager's id. A missing manager is treated as
// no manager so a fresh install can still register its first users.
func (p *FixedManager) AssignManager(ctx context.Context, reg entity.Registration) (*int64, error) {
	if entity.NormalizeEmail(reg.Email) == p.email {
		return nil, nil
	}

	manager, err := p.users.GetByEmail(ctx, p.email)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find default manager %s: %w", p.email, err)
	}

	id := manager.ID
	return &id, nil
}

var (
	_ port.ManagerAssignmentPolicy = NoManager{}
	_ port.ManagerAssignmentPolicy = (*FixedManager)(nil)
)
