package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

const referralCodeAttempts = 5

// Rewards implements the daily check-in and referral rules.
type Rewards struct {
	store    *Store
	settings *Settings
	ledger   *Ledger
	log      *zap.Logger
	metrics  *utils.LedgerMetrics
	newCode  func() (string, error)
}

// CheckinResult describes a successful check-in.
type CheckinResult struct {
	Date    string `json:"date"`
	Coins   int64  `json:"coins"`
	Streak  int    `json:"streak"`
	Balance int64  `json:"balance"`
}

// ReferralResult describes a redeemed referral code.
type ReferralResult struct {
	ReferrerID string `json:"referrer_id"`
	Bonus      int64  `json:"bonus"`
	Balance    int64  `json:"balance"`
}

// ReferralStats summarises the referrals an account has made.
type ReferralStats struct {
	Code        string `json:"code"`
	Referrals   int64  `json:"referrals"`
	BonusEarned int64  `json:"bonus_earned"`
}

// CheckIn records today's check-in for the account and credits the flat daily reward.
// today is the caller's civil date; the streak continues only if there is a record for the day before.
func (r *Rewards) CheckIn(ctx context.Context, accountID, today string) (CheckinResult, error) {
	day, err := utils.ParseDate(today)
	if err != nil {
		return CheckinResult{}, invalidInput("bad check-in date %q", today)
	}
	yesterday := utils.DateKey(day.AddDate(0, 0, -1))
	reward := r.settings.Snapshot().DailyCoinBase

	res := CheckinResult{Date: today, Coins: reward}
	err = r.store.Write(ctx, "rewards.checkin", func(tx *Tx) error {
		var acct models.Account
		if err := tx.Clauses(forUpdate).First(&acct, "id = ?", accountID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}

		var n int64
		if err := tx.Model(&models.CheckinRecord{}).
			Where("account_id = ? AND checkin_date = ?", accountID, today).
			Count(&n).Error; err != nil {
			return storageError("load checkin", err)
		}
		if n > 0 {
			return ErrAlreadyCheckedIn
		}

		res.Streak = 1
		var prev models.CheckinRecord
		err := tx.Where("account_id = ? AND checkin_date = ?", accountID, yesterday).First(&prev).Error
		switch {
		case err == nil:
			res.Streak = prev.Streak + 1
		case !isNotFound(err):
			return storageError("load previous checkin", err)
		}

		record := models.CheckinRecord{
			AccountID:   accountID,
			CheckinDate: today,
			CoinsEarned: reward,
			Streak:      res.Streak,
		}
		if err := tx.Create(&record).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyCheckedIn
			}
			return storageError("insert checkin", err)
		}

		updates := map[string]any{"total_checkins": gorm.Expr("total_checkins + 1")}
		// a back-dated check-in must not rewind the current streak
		if acct.LastCheckinDate == nil || *acct.LastCheckinDate < today {
			updates["last_checkin_date"] = today
			updates["consecutive_checkins"] = res.Streak
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", accountID).Updates(updates).Error; err != nil {
			return storageError("update streak", err)
		}

		if err := r.ledger.credit(tx, accountID, reward, models.CategoryCheckin, "daily check-in"); err != nil {
			return err
		}
		res.Balance = acct.Balance + reward
		tx.AfterCommit(r.metrics.ObserveCheckin)
		return nil
	})
	if err != nil {
		r.metrics.ObserveFailure("checkin", KindOf(err).String())
		return CheckinResult{}, err
	}
	r.log.Info("checked in",
		zap.String("account", accountID),
		zap.String("date", today),
		zap.Int("streak", res.Streak),
		zap.Int64("coins", reward))
	return res, nil
}

// MonthlyCheckins returns the dates in the given month on which the account checked in, ascending.
func (r *Rewards) MonthlyCheckins(ctx context.Context, accountID string, year int, month time.Month) ([]string, error) {
	if month < time.January || month > time.December || year < 1 {
		return nil, invalidInput("bad month %d-%d", year, month)
	}
	from, to := utils.MonthRange(year, month)
	dates := []string{}
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.CheckinRecord{}).
			Where("account_id = ? AND checkin_date >= ? AND checkin_date < ?", accountID, from, to).
			Order("checkin_date ASC").
			Pluck("checkin_date", &dates).Error; err != nil {
			return storageError("load checkins", err)
		}
		return nil
	})
	return dates, err
}

// ProcessReferral redeems code for a newly arrived account and credits both sides with the referral bonus.
// Checks run in order: the code must exist, must not be the account's own, and the account must not
// have been referred before.
func (r *Rewards) ProcessReferral(ctx context.Context, newAccountID, code string) (ReferralResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ReferralResult{}, ErrReferralCodeNotFound
	}
	bonus := r.settings.Snapshot().ReferralBonus

	res := ReferralResult{Bonus: bonus}
	err := r.store.Write(ctx, "rewards.referral", func(tx *Tx) error {
		var referrer models.Account
		if err := tx.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
			if isNotFound(err) {
				return ErrReferralCodeNotFound
			}
			return storageError("resolve referral code", err)
		}
		if referrer.ID == newAccountID {
			return ErrSelfReferral
		}

		var n int64
		if err := tx.Model(&models.Referral{}).Where("referee_id = ?", newAccountID).Count(&n).Error; err != nil {
			return storageError("load referral", err)
		}
		if n > 0 {
			return ErrAlreadyReferred
		}

		var acct models.Account
		if err := tx.Clauses(forUpdate).First(&acct, "id = ?", newAccountID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}
		if acct.ReferredBy != nil {
			return ErrAlreadyReferred
		}

		ref := models.Referral{ReferrerID: referrer.ID, RefereeID: newAccountID, Code: code, Bonus: bonus}
		if err := tx.Create(&ref).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyReferred
			}
			return storageError("insert referral", err)
		}
		if err := r.ledger.credit(tx, referrer.ID, bonus, models.CategoryReferral, "Friend referral bonus"); err != nil {
			return err
		}
		if err := r.ledger.credit(tx, newAccountID, bonus, models.CategoryReferral, "Invitation code bonus"); err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Where("id = ? AND referred_by IS NULL", newAccountID).
			Update("referred_by", referrer.ID).Error; err != nil {
			return storageError("set referred_by", err)
		}
		res.ReferrerID = referrer.ID
		res.Balance = acct.Balance + bonus
		return nil
	})
	if err != nil {
		r.metrics.ObserveFailure("referral", KindOf(err).String())
		return ReferralResult{}, err
	}
	r.log.Info("referral redeemed",
		zap.String("referrer", res.ReferrerID),
		zap.String("referee", newAccountID),
		zap.Int64("bonus", bonus))
	return res, nil
}

// GenerateReferralCode returns the account's referral code, issuing one the first time.
func (r *Rewards) GenerateReferralCode(ctx context.Context, accountID string) (string, error) {
	var code string
	err := r.store.Write(ctx, "rewards.referral_code", func(tx *Tx) error {
		var acct models.Account
		if err := tx.Clauses(forUpdate).First(&acct, "id = ?", accountID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}
		if acct.ReferralCode != nil && *acct.ReferralCode != "" {
			code = *acct.ReferralCode
			return nil
		}
		for i := 0; i < referralCodeAttempts; i++ {
			candidate, err := r.newCode()
			if err != nil {
				return storageError("generate referral code", err)
			}
			var n int64
			if err := tx.Model(&models.Account{}).Where("referral_code = ?", candidate).Count(&n).Error; err != nil {
				return storageError("check referral code", err)
			}
			if n > 0 {
				continue
			}
			if err := tx.Model(&models.Account{}).Where("id = ?", accountID).Update("referral_code", candidate).Error; err != nil {
				if isDuplicate(err) {
					continue
				}
				return storageError("store referral code", err)
			}
			code = candidate
			return nil
		}
		return storageError("generate referral code", errors.New("no free code after retries"))
	})
	return code, err
}

// ReferralStats reports how many accounts redeemed this account's code and the bonus it earned from them.
func (r *Rewards) ReferralStats(ctx context.Context, accountID string) (ReferralStats, error) {
	var st ReferralStats
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		var acct models.Account
		if err := db.Select("id", "referral_code").First(&acct, "id = ?", accountID).Error; err != nil {
			if isNotFound(err) {
				return ErrAccountNotFound
			}
			return storageError("load account", err)
		}
		if acct.ReferralCode != nil {
			st.Code = *acct.ReferralCode
		}
		var agg struct {
			Count int64
			Total int64
		}
		if err := db.Model(&models.Referral{}).
			Select("COUNT(*) AS count, COALESCE(SUM(bonus), 0) AS total").
			Where("referrer_id = ?", accountID).
			Scan(&agg).Error; err != nil {
			return storageError("load referrals", err)
		}
		st.Referrals, st.BonusEarned = agg.Count, agg.Total
		return nil
	})
	return st, err
}
