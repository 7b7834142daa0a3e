package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// Accounts handles first contact and read-only account queries.
type Accounts struct {
	store    *Store
	settings *Settings
	ledger   *Ledger
	log      *zap.Logger
	now      func() time.Time
}

// Profile is an account together with its referral and purchase totals.
type Profile struct {
	models.Account
	ReferralCount  int64 `json:"referral_count"`
	ReferralEarned int64 `json:"referral_earned"`
	PurchaseCount  int64 `json:"purchase_count"`
}

// QuickStats summarises the ledger for the dashboard.
type QuickStats struct {
	TotalAccounts  int64 `json:"total_accounts"`
	CheckinsToday  int64 `json:"checkins_today"`
	ActiveRaffles  int64 `json:"active_raffles"`
	CoinsInBalance int64 `json:"coins_in_balance"`
	CoinsIssued    int64 `json:"coins_issued"`
}

// Register creates the account on first contact and refreshes its names afterwards.
// A new account receives the welcome bonus when one is configured.
func (a *Accounts) Register(ctx context.Context, id, displayName, handle string) (models.Account, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Account{}, false, invalidInput("account id is required")
	}
	displayName = strings.TrimSpace(displayName)
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")

	bonus := a.settings.Snapshot().WelcomeBonus

	var (
		acct    models.Account
		created bool
	)
	err := a.store.Write(ctx, "accounts.register", func(tx *Tx) error {
		err := tx.First(&acct, "id = ?", id).Error
		switch {
		case err == nil:
			if acct.DisplayName == displayName && acct.Handle == handle {
				return nil
			}
			if err := tx.Model(&acct).Updates(map[string]any{"display_name": displayName, "handle": handle}).Error; err != nil {
				return storageError("update account", err)
			}
			acct.DisplayName, acct.Handle = displayName, handle
			return nil
		case !isNotFound(err):
			return storageError("load account", err)
		}

		acct = models.Account{ID: id, DisplayName: displayName, Handle: handle, CreatedAt: a.now()}
		if err := tx.Create(&acct).Error; err != nil {
			return storageError("create account", err)
		}
		created = true
		if err := a.ledger.credit(tx, id, bonus, models.CategoryWelcome, "Welcome bonus"); err != nil {
			return err
		}
		if err := tx.First(&acct, "id = ?", id).Error; err != nil {
			return storageError("reload account", err)
		}
		return nil
	})
	if err != nil {
		return models.Account{}, false, err
	}
	if created {
		a.log.Info("account registered", zap.String("account", id), zap.Int64("welcome_bonus", bonus))
	}
	return acct, created, nil
}

// Get loads one account.
func (a *Accounts) Get(ctx context.Context, id string) (models.Account, error) {
	var acct models.Account
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.First(&acct, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}
		return nil
	})
	return acct, err
}

// Profile loads an account with its referral and purchase totals.
func (a *Accounts) Profile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.First(&p.Account, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}
		var agg struct {
			Count int64
			Total int64
		}
		if err := db.Model(&models.Referral{}).
			Select("COUNT(*) AS count, COALESCE(SUM(bonus), 0) AS total").
			Where("referrer_id = ?", id).
			Scan(&agg).Error; err != nil {
			return storageError("load referrals", err)
		}
		p.ReferralCount, p.ReferralEarned = agg.Count, agg.Total
		if err := db.Model(&models.Purchase{}).Where("account_id = ?", id).Count(&p.PurchaseCount).Error; err != nil {
			return storageError("count purchases", err)
		}
		return nil
	})
	return p, err
}

// All lists every account, newest first.
func (a *Accounts) All(ctx context.Context) ([]models.Account, error) {
	var list []models.Account
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Order("created_at DESC").Find(&list).Error; err != nil {
			return storageError("list accounts", err)
		}
		return nil
	})
	return list, err
}

// QuickStats counts accounts, today's check-ins and open raffles, and sums the coins in circulation.
func (a *Accounts) QuickStats(ctx context.Context, today string) (QuickStats, error) {
	if _, err := utils.ParseDate(today); err != nil {
		return QuickStats{}, invalidInput("bad date %q", today)
	}
	var st QuickStats
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.Account{}).Count(&st.TotalAccounts).Error; err != nil {
			return storageError("count accounts", err)
		}
		if err := db.Model(&models.CheckinRecord{}).Where("checkin_date = ?", today).Count(&st.CheckinsToday).Error; err != nil {
			return storageError("count checkins", err)
		}
		if err := db.Model(&models.Raffle{}).
			Where("status = ? AND end_time > ?", models.RaffleActive, a.now()).
			Count(&st.ActiveRaffles).Error; err != nil {
			return storageError("count raffles", err)
		}
		var sums struct {
			Balance int64
			Earned  int64
		}
		if err := db.Model(&models.Account{}).
			Select("COALESCE(SUM(balance), 0) AS balance, COALESCE(SUM(lifetime_earned), 0) AS earned").
			Scan(&sums).Error; err != nil {
			return storageError("sum balances", err)
		}
		st.CoinsInBalance, st.CoinsIssued = sums.Balance, sums.Earned
		return nil
	})
	return st, err
}
