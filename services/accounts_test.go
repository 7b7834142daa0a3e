package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/miraclezmoon/TELEBOT-19/models"
)

func TestRegisterCreatesOnce(t *testing.T) {
	core, db, _ := setupCore(t)
	ctx := context.Background()

	acct, created, err := core.Accounts.Register(ctx, "1001", "Alice", "@alice")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "alice", acct.Handle)
	require.Zero(t, acct.Balance)

	acct, created, err = core.Accounts.Register(ctx, "1001", "Alice B", "alice_b")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "Alice B", acct.DisplayName)
	require.Equal(t, "alice_b", acct.Handle)

	var n int64
	require.NoError(t, db.Model(&models.Account{}).Count(&n).Error)
	require.EqualValues(t, 1, n)
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRegisterWelcomeBonus(t *testing.T) {
	core, db, _ := setupCore(t)
	ctx := context.Background()
	setSettings(t, core, map[string]any{SettingWelcomeBonus: 5})

	acct, created, err := core.Accounts.Register(ctx, "1001", "Alice", "")
	require.NoError(t, err)
	require.True(t, created)
	require.EqualValues(t, 5, acct.Balance)

	// returning users are not paid again
	acct, _, err = core.Accounts.Register(ctx, "1001", "Alice", "")
	require.NoError(t, err)
	require.EqualValues(t, 5, acct.Balance)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("account_id = ?", "1001").Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.CategoryWelcome, entries[0].Category)
	requireLedgerConsistent(t, db, "1001")
}

func TestRegisterRequiresID(t *testing.T) {
	core, _, _ := setupCore(t)
	_, _, err := core.Accounts.Register(context.Background(), "  ", "x", "")
	require.Equal(t, KindInvalidInput, KindOf(err))
}

func TestProfileAndGet(t *testing.T) {
	core, _, _ := setupCore(t)
	ctx := context.Background()
	registerWithBalance(t, core, "ref", 0)
	registerWithBalance(t, core, "new", 0)
	code, err := core.Rewards.GenerateReferralCode(ctx, "ref")
	require.NoError(t, err)
	_, err = core.Rewards.ProcessReferral(ctx, "new", code)
	require.NoError(t, err)

	p, err := core.Accounts.Profile(ctx, "ref")
	require.NoError(t, err)
	require.EqualValues(t, 1, p.ReferralCount)
	require.EqualValues(t, 1, p.ReferralEarned)
	require.EqualValues(t, 1, p.Balance)

	_, err = core.Accounts.Profile(ctx, "ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = core.Accounts.Get(ctx, "ghost")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestQuickStats(t *testing.T) {
	core, _, clock := setupCore(t)
	ctx := context.Background()
	registerWithBalance(t, core, "u1", 20)
	registerWithBalance(t, core, "u2", 0)

	_, err := core.Rewards.CheckIn(ctx, "u1", "2024-05-10")
	require.NoError(t, err)
	_, err = core.Rewards.CheckIn(ctx, "u2", "2024-05-09")
	require.NoError(t, err)

	_, err = core.Raffles.Create(ctx, RaffleInput{Name: "A", Prize: "Mug", EntryCost: 5, EndTime: clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	stopped, err := core.Raffles.Create(ctx, RaffleInput{Name: "B", Prize: "Hat", EntryCost: 5, EndTime: clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = core.Raffles.Stop(ctx, stopped.ID)
	require.NoError(t, err)

	st, err := core.Accounts.QuickStats(ctx, "2024-05-10")
	require.NoError(t, err)
	require.EqualValues(t, 2, st.TotalAccounts)
	require.EqualValues(t, 1, st.CheckinsToday)
	require.EqualValues(t, 1, st.ActiveRaffles)
	require.EqualValues(t, 22, st.CoinsInBalance)
	require.EqualValues(t, 22, st.CoinsIssued)

	all, err := core.Accounts.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
