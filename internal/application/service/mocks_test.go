package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// memStore is an in-memory implementation of the repositories used by the service tests
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*entity.User
	expenses map[int64]*entity.Expense
	history  []*entity.StatusHistory
	nextUser int64
	nextExp  int64

	listErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*entity.User),
		expenses: make(map[int64]*entity.Expense),
	}
}

type memUsers struct{ s *memStore }
type memExpenses struct{ s *memStore }
type memHistory struct{ s *memStore }

func (m memUsers) Create(ctx context.Context, user *entity.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return entity.ErrDuplicateEmail
		}
	}
	m.s.nextUser++
	user.ID = m.s.nextUser
	c := *user
	m.s.users[user.ID] = &c
	return nil
}

func (m memUsers) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m memUsers) ListByManager(ctx context.Context, managerID int64) ([]*entity.User, error) {
	all, _ := m.List(ctx)
	var out []*entity.User
	for _, u := range all {
		if u.IsDirectSubordinateOf(managerID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memUsers) List(ctx context.Context) ([]*entity.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*entity.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memExpenses) Create(ctx context.Context, e *entity.Expense) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextExp++
	e.ID = m.s.nextExp
	m.s.expenses[e.ID] = e.Clone()
	return nil
}

func (m memExpenses) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.expenses[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return e.Clone(), nil
}

func (m memExpenses) List(ctx context.Context) ([]*entity.Expense, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.listErr != nil {
		return nil, m.s.listErr
	}
	out := make([]*entity.Expense, 0, len(m.s.expenses))
	for _, e := range m.s.expenses {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memExpenses) UpdateContent(ctx context.Context, e *entity.Expense) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.expenses[e.ID]
	if !ok {
		return entity.ErrNotFound
	}
	if cur.Status != entity.StatusPending {
		return entity.ErrInvalidTransition
	}
	next := e.Clone()
	next.Status = cur.Status
	next.OwnerID = cur.OwnerID
	m.s.expenses[e.ID] = next
	return nil
}

func (m memExpenses) CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, comments string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.expenses[id]
	if !ok {
		return entity.ErrNotFound
	}
	if cur.Status != expected {
		return entity.ErrInvalidTransition
	}
	cur.Status = next
	cur.Comments = comments
	cur.UpdatedAt = at
	return nil
}

func (m memHistory) Append(ctx context.Context, h *entity.StatusHistory) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	h.ID = int64(len(m.s.history) + 1)
	c := *h
	m.s.history = append(m.s.history, &c)
	return nil
}

func (m memHistory) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.StatusHistory, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.StatusHistory
	for _, h := range m.s.history {
		if h.ExpenseID == expenseID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

type mockTxManager struct {
	commitErr error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return m.commitErr
}

// plainHasher marks credentials instead of hashing them
type plainHasher struct{}

func (plainHasher) Hash(credential string) (string, error) { return "hashed:" + credential, nil }

func (plainHasher) Compare(hash, credential string) error {
	if hash != "hashed:"+credential {
		return errors.New("mismatch")
	}
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
