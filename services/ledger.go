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

const maxHistoryLimit = 500

// Ledger owns account balances. Every balance change goes through credit or debitIfSufficient
// and writes exactly one LedgerEntry in the same transaction.
type Ledger struct {
	store   *Store
	log     *zap.Logger
	metrics *utils.LedgerMetrics
	now     func() time.Time
}

// credit adds amount to the balance and lifetime total. A zero amount touches nothing.
func (l *Ledger) credit(tx *Tx, accountID string, amount int64, category, reason string) error {
	if amount < 0 {
		return invalidInput("credit amount %d is negative", amount)
	}
	if amount == 0 {
		return nil
	}
	res := tx.Model(&models.Account{}).Where("id = ?", accountID).Updates(map[string]any{
		"balance":         gorm.Expr("balance + ?", amount),
		"lifetime_earned": gorm.Expr("lifetime_earned + ?", amount),
	})
	if res.Error != nil {
		return storageError("credit account", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	if err := l.appendEntry(tx, accountID, amount, models.EntryEarn, category, reason); err != nil {
		return err
	}
	tx.AfterCommit(func() { l.metrics.ObserveCredit(category, amount) })
	return nil
}

// debitIfSufficient removes amount from the balance, or fails with ErrInsufficientFunds and changes nothing.
// It returns the balance left after the debit.
func (l *Ledger) debitIfSufficient(tx *Tx, accountID string, amount int64, category, reason string) (int64, error) {
	if amount <= 0 {
		return 0, invalidInput("debit amount %d must be positive", amount)
	}
	var acct models.Account
	if err := tx.Clauses(forUpdate).Select("id", "balance").First(&acct, "id = ?", accountID).Error; err != nil {
		if isNotFound(err) {
			return 0, ErrAccountNotFound
		}
		return 0, storageError("load account", err)
	}
	if acct.Balance < amount {
		return acct.Balance, ErrInsufficientFunds
	}
	res := tx.Model(&models.Account{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, storageError("debit account", res.Error)
	}
	if res.RowsAffected == 0 {
		return acct.Balance, ErrInsufficientFunds
	}
	if err := l.appendEntry(tx, accountID, -amount, models.EntrySpend, category, reason); err != nil {
		return 0, err
	}
	tx.AfterCommit(func() { l.metrics.ObserveDebit(category, amount) })
	return acct.Balance - amount, nil
}

func (l *Ledger) appendEntry(tx *Tx, accountID string, amount int64, kind, category, reason string) error {
	entry := models.LedgerEntry{
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Category:    category,
		Description: reason,
		CreatedAt:   l.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return storageError("append ledger entry", err)
	}
	return nil
}

// Adjust applies a manual correction. Positive amounts are credited; negative amounts are debited
// and never take the balance below zero.
func (l *Ledger) Adjust(ctx context.Context, accountID string, amount int64, reason string) (models.Account, error) {
	reason = strings.TrimSpace(reason)
	if amount == 0 {
		return models.Account{}, invalidInput("adjustment amount must not be zero")
	}
	if reason == "" {
		return models.Account{}, invalidInput("adjustment reason is required")
	}

	var acct models.Account
	err := l.store.Write(ctx, "ledger.adjust", func(tx *Tx) error {
		if amount > 0 {
			if err := l.credit(tx, accountID, amount, models.CategoryAdmin, reason); err != nil {
				return err
			}
		} else if _, err := l.debitIfSufficient(tx, accountID, -amount, models.CategoryAdmin, reason); err != nil {
			return err
		}
		if err := tx.First(&acct, "id = ?", accountID).Error; err != nil {
			return storageError("reload account", err)
		}
		return nil
	})
	if err != nil {
		l.metrics.ObserveFailure("adjust", KindOf(err).String())
		return models.Account{}, err
	}
	l.log.Info("balance adjusted",
		zap.String("account", accountID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("balance", acct.Balance))
	return acct, nil
}

// History returns an account's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	limit = clampLimit(limit)
	var entries []models.LedgerEntry
	err := l.store.Read(ctx, func(db *gorm.DB) error {
		var n int64
		if err := db.Model(&models.Account{}).Where("id = ?", accountID).Count(&n).Error; err != nil {
			return storageError("load account", err)
		}
		if n == 0 {
			return ErrAccountNotFound
		}
		if err := db.Where("account_id = ?", accountID).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
			return storageError("load history", err)
		}
		return nil
	})
	return entries, err
}

// Entries returns the most recent ledger entries across all accounts.
func (l *Ledger) Entries(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	limit = clampLimit(limit)
	var entries []models.LedgerEntry
	err := l.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
			return storageError("load ledger", err)
		}
		return nil
	})
	return entries, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
