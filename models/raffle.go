package models

import "time"

// RaffleStatus is the lifecycle state of a raffle.
type RaffleStatus string

const (
	RaffleActive    RaffleStatus = "active"
	RaffleCompleted RaffleStatus = "completed"
	RaffleStopped   RaffleStatus = "stopped"
)

// Raffle is a prize draw that accounts pay coins to enter.
type Raffle struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:128;not null" json:"name"`
	Description string       `gorm:"size:1024" json:"description"`
	Prize       string       `gorm:"size:255;not null" json:"prize"`
	EntryCost   int64        `gorm:"not null" json:"entry_cost"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `gorm:"index" json:"end_time"`
	Status      RaffleStatus `gorm:"size:16;not null;index" json:"status"`
	WinnerID    *string      `gorm:"size:64" json:"winner_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	// EntryCount is filled by list queries and never persisted.
	EntryCount int64 `gorm:"-" json:"entry_count"`
}

// RaffleEntry records one account's paid entry into a raffle. An account enters a raffle at most once.
type RaffleEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RaffleID   uint      `gorm:"not null;uniqueIndex:idx_raffle_entry_pair,priority:1" json:"raffle_id"`
	AccountID  string    `gorm:"size:64;not null;index;uniqueIndex:idx_raffle_entry_pair,priority:2" json:"account_id"`
	CoinsSpent int64     `json:"coins_spent"`
	CreatedAt  time.Time `json:"created_at"`
}
