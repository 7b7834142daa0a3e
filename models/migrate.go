package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&LedgerEntry{},
		&CheckinRecord{},
		&Raffle{},
		&RaffleEntry{},
		&Product{},
		&Purchase{},
		&Referral{},
		&Setting{},
		&Admin{},
	)
}
