package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
)

// Store bundles the SQLite repositories behind port.Store
type Store struct {
	db       *sqlite.DB
	users    *UserRepository
	expenses *ExpenseRepository
	history  *HistoryRepository
}

// NewStore creates the SQLite-backed store. Closing it closes db.
func NewStore(db *sqlite.DB, logger *zap.Logger) *Store {
	return &Store{
		db:       db,
		users:    NewUserRepository(db, logger),
		expenses: NewExpenseRepository(db, logger),
		history:  NewHistoryRepository(db, logger),
	}
}

func (s *Store) Users() port.UserRepository { return s.users }
func (s *Store) Expenses() port.ExpenseRepository { return s.expenses }
func (s *Store) History() port.HistoryRepository { return s.history }
func (s *Store) Transactions() port.TransactionManager { return s.db }
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error { return s.db.Close() }

var _ port.Store = (*Store)(nil)
