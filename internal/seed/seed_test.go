package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/bolt"
	"github.com/garyjia/expense-approval/internal/infrastructure/security"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "seed.bolt"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	directory := service.NewDirectory(store.Users(), nopLogger{})
	ledger := service.NewLedger(store.Expenses(), store.History(), store.Transactions(), nopLogger{})
	engine := workflow.NewEngine(directory, ledger, nopLogger{})
	loader := NewLoader(directory, engine, hasher, nopLogger{})

	result, err := loader.Load(ctx, "password123")
	require.NoError(t, err)
	assert.Equal(t, &Result{Users: 6, Expenses: 6}, result)

	alice, err := directory.FindByEmail(ctx, "employee@company.com")
	require.NoError(t, err)
	john, err := directory.FindByEmail(ctx, "manager@company.com")
	require.NoError(t, err)
	require.NotNil(t, alice.ManagerID)
	assert.Equal(t, john.ID, *alice.ManagerID)
	assert.NoError(t, hasher.Compare(alice.CredentialHash, "password123"))

	all, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)

	counts := map[entity.Status]int{}
	for _, e := range all {
		counts[e.Status]++
	}
	assert.Equal(t, map[entity.Status]int{
		entity.StatusApproved: 2,
		entity.StatusRejected: 1,
		entity.StatusPending:  3,
	}, counts)

	rejected := all[1]
	assert.Equal(t, entity.StatusRejected, rejected.Status)
	assert.Equal(t, "Receipt was not clear. Please resubmit with a valid receipt.", rejected.Comments)

	trail, err := ledger.History(ctx, rejected.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, john.ID, trail[1].ActorID)

	again, err := loader.Load(ctx, "password123")
	require.NoError(t, err)
	assert.True(t, again.Skipped)
}
