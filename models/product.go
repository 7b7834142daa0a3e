package models

import "time"

// Product is a shop item. Deleting a product clears Active so past purchases still resolve.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`
	Price       int64     `gorm:"not null" json:"price"`
	Stock       int       `gorm:"not null" json:"stock"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	Active      bool      `gorm:"not null;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Purchase is an immutable record of a completed buy.
type Purchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderNo     string    `gorm:"size:36;not null;uniqueIndex" json:"order_no"`
	AccountID   string    `gorm:"size:64;not null;index" json:"account_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"size:128" json:"product_name"`
	CoinsSpent  int64     `json:"coins_spent"`
	CreatedAt   time.Time `json:"created_at"`
}
