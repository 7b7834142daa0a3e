package models

import "time"

// Ledger entry kinds.
const (
	EntryEarn  = "earn"
	EntrySpend = "spend"
)

// Ledger entry categories.
const (
	CategoryCheckin  = "checkin"
	CategoryReferral = "referral"
	CategoryWelcome  = "welcome"
	CategoryRaffle   = "raffle"
	CategoryPurchase = "purchase"
	CategoryAdmin    = "admin"
)

// LedgerEntry is one append-only row of the transaction log. Amount is signed: positive for earn,
// negative for spend.
type LedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   string    `gorm:"size:64;not null;index" json:"account_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Kind        string    `gorm:"size:8;not null" json:"kind"`
	Category    string    `gorm:"size:16;not null;index" json:"category"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
