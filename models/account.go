package models

import "time"

// Account is a bot user's reward ledger record, keyed by the identifier the messaging platform assigns.
// Balance and LifetimeEarned are only written by the ledger in the services package.
type Account struct {
	ID                  string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName         string    `gorm:"size:128" json:"display_name"`
	Handle              string    `gorm:"size:64" json:"handle"`
	Balance             int64     `gorm:"not null;default:0" json:"balance"`
	LifetimeEarned      int64     `gorm:"not null;default:0" json:"lifetime_earned"`
	ReferralCode        *string   `gorm:"size:16;uniqueIndex:idx_accounts_referral_code" json:"referral_code"`
	ReferredBy          *string   `gorm:"size:64;index" json:"referred_by"`
	LastCheckinDate     *string   `gorm:"size:10" json:"last_checkin_date"`
	ConsecutiveCheckins int       `gorm:"not null;default:0" json:"consecutive_checkins"`
	TotalCheckins       int       `gorm:"not null;default:0" json:"total_checkins"`
	RaffleEntryCount    int       `gorm:"not null;default:0" json:"raffle_entry_count"`
	RaffleWinCount      int       `gorm:"not null;default:0" json:"raffle_win_count"`
	CreatedAt           time.Time `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
