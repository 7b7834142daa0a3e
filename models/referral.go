package models

import "time"

// Referral links a referee to the account whose code it redeemed. A referee appears at most once.
type Referral struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID string    `gorm:"size:64;not null;index" json:"referrer_id"`
	RefereeID  string    `gorm:"size:64;not null;uniqueIndex" json:"referee_id"`
	Code       string    `gorm:"size:16;not null" json:"code"`
	Bonus      int64     `json:"bonus"`
	CreatedAt  time.Time `json:"created_at"`
}
