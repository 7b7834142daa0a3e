package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/miraclezmoon/TELEBOT-19/models"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newTestCore(t *testing.T, db *gorm.DB, opts Options) (*Core, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	core := New(db, opts)
	require.NoError(t, core.Init(context.Background()))
	return core, clock
}

func setupCore(t *testing.T) (*Core, *gorm.DB, *testClock) {
	t.Helper()
	db := setupTestDB(t)
	core, clock := newTestCore(t, db, Options{})
	return core, db, clock
}

// registerWithBalance creates an account and funds it through the ledger.
func registerWithBalance(t *testing.T, core *Core, id string, balance int64) models.Account {
	t.Helper()
	ctx := context.Background()
	acct, created, err := core.Accounts.Register(ctx, id, "User "+id, id)
	require.NoError(t, err)
	require.True(t, created)
	if balance > 0 {
		acct, err = core.Ledger.Adjust(ctx, id, balance-acct.Balance, "test funding")
		require.NoError(t, err)
	}
	return acct
}

func loadAccount(t *testing.T, db *gorm.DB, id string) models.Account {
	t.Helper()
	var acct models.Account
	require.NoError(t, db.First(&acct, "id = ?", id).Error)
	return acct
}

// requireLedgerConsistent checks that the balance is non-negative and matches the transaction log.
func requireLedgerConsistent(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	acct := loadAccount(t, db, id)
	var entries []models.LedgerEntry
	require.NoError(t, db.Where("account_id = ?", id).Find(&entries).Error)
	var earned, spent int64
	for _, e := range entries {
		switch e.Kind {
		case models.EntryEarn:
			require.Positive(t, e.Amount)
			earned += e.Amount
		case models.EntrySpend:
			require.Negative(t, e.Amount)
			spent += -e.Amount
		default:
			t.Fatalf("unexpected entry kind %q", e.Kind)
		}
	}
	require.GreaterOrEqual(t, acct.Balance, int64(0))
	require.Equal(t, earned, acct.LifetimeEarned)
	require.Equal(t, acct.LifetimeEarned-spent, acct.Balance)
}

func setSettings(t *testing.T, core *Core, values map[string]any) {
	t.Helper()
	_, err := core.Settings.Save(context.Background(), values)
	require.NoError(t, err)
}
