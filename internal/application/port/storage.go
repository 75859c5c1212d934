package port

import "context"

// Store is one storage backend with all of its repositories
type Store interface {
	Users() UserRepository
	Expenses() ExpenseRepository
	History() HistoryRepository
	Transactions() TransactionManager

	// Ping reports whether the backend is usable
	Ping(ctx context.Context) error
	Close() error
}
