package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// userRecord is the stored form of a user; entity.User hides the hash from JSON
type userRecord struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           entity.Role `json:"role"`
	CredentialHash string      `json:"credential_hash"`
	ManagerID      *int64      `json:"manager_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

func toUserRecord(u *entity.User) userRecord {
	return userRecord{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		CredentialHash: u.CredentialHash,
		ManagerID:      u.ManagerID,
		CreatedAt:      u.CreatedAt,
	}
}

func (r userRecord) toEntity() *entity.User {
	return &entity.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           r.Role,
		CredentialHash: r.CredentialHash,
		ManagerID:      r.ManagerID,
		CreatedAt:      r.CreatedAt,
	}
}

// UserRepository implements port.UserRepository.
// Emails are indexed in their own bucket so the unique check and the insert
// happen in one write transaction.
type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	email := entity.NormalizeEmail(user.Email)

	return r.store.update(ctx, func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketUsersByEmail)
		if index.Get([]byte(email)) != nil {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateEmail, user.Email)
		}

		users := tx.Bucket(bucketUsers)
		seq, err := users.NextSequence()
		if err != nil {
			return fmt.Errorf("next user id: %w", err)
		}

		rec := toUserRecord(user)
		rec.ID = int64(seq)
		rec.Email = email
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}

		if err := users.Put(itob(rec.ID), data); err != nil {
			return err
		}
		if err := index.Put([]byte(email), itob(rec.ID)); err != nil {
			return err
		}

		user.ID = rec.ID
		user.Email = email
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user *entity.User
	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, id)
		return err
	})
	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user *entity.User
	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(entity.NormalizeEmail(email)))
		if id == nil {
			return fmt.Errorf("%w: user %s", entity.ErrNotFound, email)
		}
		var err error
		user, err = getUser(tx, btoi(id))
		return err
	})
	return user, err
}

func (r *UserRepository) ListByManager(ctx context.Context, managerID int64) ([]*entity.User, error) {
	return r.list(ctx, func(u *entity.User) bool {
		return u.IsDirectSubordinateOf(managerID)
	})
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.list(ctx, func(*entity.User) bool { return true })
}

func (r *UserRepository) list(ctx context.Context, keep func(*entity.User) bool) ([]*entity.User, error) {
	users := make([]*entity.User, 0)
	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
			var rec userRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling user: %w", err)
			}
			if u := rec.toEntity(); keep(u) {
				users = append(users, u)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func getUser(tx *bbolt.Tx, id int64) (*entity.User, error) {
	data := tx.Bucket(bucketUsers).Get(itob(id))
	if data == nil {
		return nil, fmt.Errorf("%w: user %d", entity.ErrNotFound, id)
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling user: %w", err)
	}
	return rec.toEntity(), nil
}

var _ port.UserRepository = (*UserRepository)(nil)
