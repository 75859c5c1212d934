package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Directory is the set of users and their manager links
type Directory struct {
	users  port.UserRepository
	logger Logger
	now    func() time.Time
}

// NewDirectory creates a Directory over the user repository
func NewDirectory(users port.UserRepository, logger Logger) *Directory {
	return &Directory{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// FindByID returns entity.ErrNotFound for an unknown id
func (d *Directory) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	return d.users.GetByID(ctx, id)
}

// FindByEmail looks a user up by credential email, case-insensitively
func (d *Directory) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return d.users.GetByEmail(ctx, entity.NormalizeEmail(email))
}

// SubordinatesOf returns the direct reports of managerID
func (d *Directory) SubordinatesOf(ctx context.Context, managerID int64) ([]*entity.User, error) {
	return d.users.ListByManager(ctx, managerID)
}

// List returns every user
func (d *Directory) List(ctx context.Context) ([]*entity.User, error) {
	return d.users.List(ctx)
}

// Create stores a new user. The email must be unused and the manager, if any, must exist.
func (d *Directory) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	user.Email = entity.NormalizeEmail(user.Email)
	if !user.Role.IsValid() {
		return nil, entity.NewValidationError("role", "is not a known role")
	}

	if _, err := d.users.GetByEmail(ctx, user.Email); err == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrDuplicateEmail, user.Email)
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if err := d.checkManagerChain(ctx, user); err != nil {
		return nil, err
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = d.now().UTC()
	}

	if err := d.users.Create(ctx, user); err != nil {
		d.logger.Error("Failed to create user", "error", err, "email", user.Email)
		return nil, err
	}

	d.logger.Info("User created", "id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}

// checkManagerChain walks up from the new user's manager. Every link must exist and
// the chain must not come back to the user.
func (d *Directory) checkManagerChain(ctx context.Context, user *entity.User) error {
	seen := map[int64]bool{}
	if user.ID != 0 {
		seen[user.ID] = true
	}

	next := user.ManagerID
	for next != nil {
		if seen[*next] {
			return entity.NewValidationError("manager_id", "would create a reporting cycle")
		}
		seen[*next] = true

		manager, err := d.users.GetByID(ctx, *next)
		if errors.Is(err, entity.ErrNotFound) {
			return entity.NewValidationError("manager_id", "does not reference an existing user")
		}
		if err != nil {
			return fmt.Errorf("load manager %d: %w", *next, err)
		}
		next = manager.ManagerID
	}
	return nil
}
