// Package bolt is an embedded key/value storage backend built on bbolt.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/port"
)

var (
	bucketUsers        = []byte("users")
	bucketUsersByEmail = []byte("users_by_email")
	bucketExpenses     = []byte("expenses")
	bucketHistory      = []byte("history")
)

var errReadOnlyTx = errors.New("write inside a read-only transaction")

type txKey struct{}

// Store implements port.Store on a single bbolt file
type Store struct {
	db       *bbolt.DB
	logger   *zap.Logger
	users    *UserRepository
	expenses *ExpenseRepository
	history  *HistoryRepository
}

// Open opens or creates the bolt file at path and its buckets
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketUsersByEmail, bucketExpenses, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.users = &UserRepository{store: s}
	s.expenses = &ExpenseRepository{store: s}
	s.history = &HistoryRepository{store: s}

	logger.Info("Bolt store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) Users() port.UserRepository { return s.users }
func (s *Store) Expenses() port.ExpenseRepository { return s.expenses }
func (s *Store) History() port.HistoryRepository { return s.history }
func (s *Store) Transactions() port.TransactionManager { return s }

// Ping checks that the file is still open and readable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketExpenses) == nil {
			return errors.New("expenses bucket missing")
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTransaction runs fn inside one read-write bolt transaction carried by ctx.
// Nested calls join the outer transaction. bbolt allows a single writer, so
// concurrent transactions are serialized.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		s.logger.Debug("Bolt transaction rolled back", zap.Error(err))
	}
	return err
}

func txFrom(ctx context.Context) *bbolt.Tx {
	tx, _ := ctx.Value(txKey{}).(*bbolt.Tx)
	return tx
}

// view reads through the transaction of ctx if there is one
func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return s.db.View(fn)
}

// update writes through the transaction of ctx if there is one
func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := txFrom(ctx); tx != nil {
		if !tx.Writable() {
			return errReadOnlyTx
		}
		return fn(tx)
	}
	return s.db.Update(fn)
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

var (
	_ port.Store              = (*Store)(nil)
	_ port.TransactionManager = (*Store)(nil)
)
