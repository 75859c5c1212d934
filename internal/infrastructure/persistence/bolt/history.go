package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository.
// Keys are expense id followed by entry id, so one expense's trail is a
// contiguous, ordered key range.
type HistoryRepository struct {
	store *Store
}

func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StatusHistory) error {
	return r.store.update(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHistory)
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next history id: %w", err)
		}

		stored := *entry
		stored.ID = int64(seq)
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshaling history: %w", err)
		}

		key := append(itob(stored.ExpenseID), itob(stored.ID)...)
		if err := bucket.Put(key, data); err != nil {
			return err
		}

		entry.ID = stored.ID
		return nil
	})
}

func (r *HistoryRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.StatusHistory, error) {
	records := make([]*entity.StatusHistory, 0)
	prefix := itob(expenseID)

	err := r.store.view(ctx, func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var record entity.StatusHistory
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling history: %w", err)
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
