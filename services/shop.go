package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// Shop manages the product catalog and purchases.
type Shop struct {
	store   *Store
	ledger  *Ledger
	log     *zap.Logger
	metrics *utils.LedgerMetrics
	now     func() time.Time
}

// ProductInput carries the operator-supplied fields of a product. Active is only honoured on update.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Active      *bool  `json:"active,omitempty"`
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Purchase models.Purchase `json:"purchase"`
	Balance  int64           `json:"balance"`
}

func (in *ProductInput) normalize() error {
	in.Name = utils.PlainText(in.Name)
	in.Description = utils.PlainText(in.Description)
	in.Category = utils.PlainText(in.Category)
	switch {
	case in.Name == "":
		return invalidInput("product name is required")
	case in.Category == "":
		return invalidInput("product category is required")
	case in.Price <= 0:
		return invalidInput("price must be positive")
	case in.Stock < 0:
		return invalidInput("stock must not be negative")
	}
	return nil
}

// ListAvailable returns active products with stock, ordered by category then price.
func (s *Shop) ListAvailable(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Where("active = ? AND stock > 0", true).
			Order("category ASC").Order("price ASC").Order("id ASC").
			Find(&list).Error; err != nil {
			return storageError("list products", err)
		}
		return nil
	})
	return list, err
}

// List returns every active product, including sold-out ones, newest first.
func (s *Shop) List(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Where("active = ?", true).Order("id DESC").Find(&list).Error; err != nil {
			return storageError("list products", err)
		}
		return nil
	})
	return list, err
}

// CreateProduct adds an active product.
func (s *Shop) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := in.normalize(); err != nil {
		return models.Product{}, err
	}
	p := models.Product{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      true,
	}
	err := s.store.Write(ctx, "shop.create", func(tx *Tx) error {
		if err := tx.Create(&p).Error; err != nil {
			return storageError("insert product", err)
		}
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	s.log.Info("product created", zap.Uint("product", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct replaces a product's fields.
func (s *Shop) UpdateProduct(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	if err := in.normalize(); err != nil {
		return models.Product{}, err
	}
	var p models.Product
	err := s.store.Write(ctx, "shop.update", func(tx *Tx) error {
		if err := tx.Clauses(forUpdate).First(&p, id).Error; err != nil {
			if isNotFound(err) {
				return ErrProductNotFound
			}
			return storageError("load product", err)
		}
		updates := map[string]any{
			"name":        in.Name,
			"description": in.Description,
			"category":    in.Category,
			"price":       in.Price,
			"stock":       in.Stock,
		}
		if in.Active != nil {
			updates["active"] = *in.Active
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return storageError("update product", err)
		}
		if err := tx.First(&p, id).Error; err != nil {
			return storageError("reload product", err)
		}
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	s.log.Info("product updated", zap.Uint("product", id))
	return p, nil
}

// DeleteProduct deactivates a product. Purchases keep referring to it.
func (s *Shop) DeleteProduct(ctx context.Context, id uint) error {
	err := s.store.Write(ctx, "shop.delete", func(tx *Tx) error {
		res := tx.Model(&models.Product{}).Where("id = ?", id).Update("active", false)
		if res.Error != nil {
			return storageError("deactivate product", res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return storageError("load product", err)
			}
			if n == 0 {
				return ErrProductNotFound
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("product deactivated", zap.Uint("product", id))
	return nil
}

// Purchase buys one unit of a product. It returns the buyer's remaining balance.
func (s *Shop) Purchase(ctx context.Context, accountID string, productID uint) (PurchaseResult, error) {
	var res PurchaseResult
	err := s.store.Write(ctx, "shop.purchase", func(tx *Tx) error {
		var p models.Product
		if err := tx.Clauses(forUpdate).First(&p, productID).Error; err != nil {
			if isNotFound(err) {
				return ErrProductNotFound
			}
			return storageError("load product", err)
		}
		if !p.Active {
			return ErrProductNotFound
		}
		if p.Stock <= 0 {
			return ErrOutOfStock
		}

		purchase := models.Purchase{
			OrderNo:     uuid.NewString(),
			AccountID:   accountID,
			ProductID:   p.ID,
			ProductName: p.Name,
			CoinsSpent:  p.Price,
			CreatedAt:   s.now(),
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return storageError("insert purchase", err)
		}
		balance, err := s.ledger.debitIfSufficient(tx, accountID, p.Price, models.CategoryPurchase, "Shop purchase: "+p.Name)
		if err != nil {
			return err
		}
		dec := tx.Model(&models.Product{}).
			Where("id = ? AND stock > 0", p.ID).
			Update("stock", gorm.Expr("stock - 1"))
		if dec.Error != nil {
			return storageError("decrement stock", dec.Error)
		}
		if dec.RowsAffected == 0 {
			return ErrOutOfStock
		}
		res = PurchaseResult{Purchase: purchase, Balance: balance}
		tx.AfterCommit(s.metrics.ObservePurchase)
		return nil
	})
	if err != nil {
		s.metrics.ObserveFailure("purchase", KindOf(err).String())
		return PurchaseResult{}, err
	}
	s.log.Info("purchase completed",
		zap.String("account", accountID),
		zap.Uint("product", productID),
		zap.String("order", res.Purchase.OrderNo),
		zap.Int64("price", res.Purchase.CoinsSpent))
	return res, nil
}

// Purchases lists an account's purchases, newest first.
func (s *Shop) Purchases(ctx context.Context, accountID string) ([]models.Purchase, error) {
	var list []models.Purchase
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Where("account_id = ?", accountID).Order("id DESC").Find(&list).Error; err != nil {
			return storageError("list purchases", err)
		}
		return nil
	})
	return list, err
}
