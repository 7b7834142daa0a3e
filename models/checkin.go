package models

import "time"

// CheckinRecord stores one daily check-in. CheckinDate is the civil date as YYYY-MM-DD and the
// (account, date) pair is unique.
type CheckinRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   string    `gorm:"size:64;not null;uniqueIndex:idx_checkin_account_date,priority:1" json:"account_id"`
	CheckinDate string    `gorm:"size:10;not null;index;uniqueIndex:idx_checkin_account_date,priority:2" json:"checkin_date"`
	CoinsEarned int64     `json:"coins_earned"`
	Streak      int       `json:"streak"`
	CreatedAt   time.Time `json:"created_at"`
}
