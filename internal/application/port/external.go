package port

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// CredentialHasher turns secrets into stored hashes and verifies them
type CredentialHasher interface {
	Hash(credential string) (string, error)
	// Compare returns nil when credential matches hash
	Compare(hash, credential string) error
}

// ManagerAssignmentPolicy picks the manager of a self-registered user
type ManagerAssignmentPolicy interface {
	// AssignManager returns the manager id for a new user, or nil for none
	AssignManager(ctx context.Context, reg entity.Registration) (*int64, error)
}
