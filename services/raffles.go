package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// Raffles manages raffle lifecycle and paid entries.
type Raffles struct {
	store    *Store
	settings *Settings
	ledger   *Ledger
	log      *zap.Logger
	metrics  *utils.LedgerMetrics
	now      func() time.Time
	pick     func(n int) (int, error)
}

// RaffleInput carries the operator-supplied fields of a new raffle.
type RaffleInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Prize       string    `json:"prize"`
	EntryCost   int64     `json:"entry_cost"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// EntryResult describes a successful raffle entry.
type EntryResult struct {
	RaffleID   uint  `json:"raffle_id"`
	CoinsSpent int64 `json:"coins_spent"`
	Balance    int64 `json:"balance"`
}

// DrawResult describes a completed draw.
type DrawResult struct {
	Raffle   models.Raffle `json:"raffle"`
	WinnerID string        `json:"winner_id"`
	Entrants int           `json:"entrants"`
}

// Create opens a new raffle. StartTime defaults to now.
func (r *Raffles) Create(ctx context.Context, in RaffleInput) (models.Raffle, error) {
	in.Name = utils.PlainText(in.Name)
	in.Description = utils.PlainText(in.Description)
	in.Prize = utils.PlainText(in.Prize)
	switch {
	case in.Name == "":
		return models.Raffle{}, invalidInput("raffle name is required")
	case in.Prize == "":
		return models.Raffle{}, invalidInput("raffle prize is required")
	case in.EntryCost <= 0:
		return models.Raffle{}, invalidInput("entry cost must be positive")
	}
	if in.StartTime.IsZero() {
		in.StartTime = r.now()
	}
	// sqlite compares stored times as text, so every stored or bound time is UTC
	in.StartTime, in.EndTime = in.StartTime.UTC(), in.EndTime.UTC()
	if !in.EndTime.After(in.StartTime) {
		return models.Raffle{}, invalidInput("end time must be after start time")
	}

	raffle := models.Raffle{
		Name:        in.Name,
		Description: in.Description,
		Prize:       in.Prize,
		EntryCost:   in.EntryCost,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Status:      models.RaffleActive,
	}
	err := r.store.Write(ctx, "raffles.create", func(tx *Tx) error {
		if err := tx.Create(&raffle).Error; err != nil {
			return storageError("insert raffle", err)
		}
		return nil
	})
	if err != nil {
		return models.Raffle{}, err
	}
	r.log.Info("raffle created", zap.Uint("raffle", raffle.ID), zap.String("name", raffle.Name))
	return raffle, nil
}

// ListActive returns open raffles, soonest ending first.
func (r *Raffles) ListActive(ctx context.Context) ([]models.Raffle, error) {
	var list []models.Raffle
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Where("status = ? AND end_time > ?", models.RaffleActive, r.now()).
			Order("end_time ASC").Order("id ASC").
			Find(&list).Error; err != nil {
			return storageError("list raffles", err)
		}
		return fillEntryCounts(db, list)
	})
	return list, err
}

// List returns every raffle regardless of status, newest first.
func (r *Raffles) List(ctx context.Context) ([]models.Raffle, error) {
	var list []models.Raffle
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Order("id DESC").Find(&list).Error; err != nil {
			return storageError("list raffles", err)
		}
		return fillEntryCounts(db, list)
	})
	return list, err
}

// Get loads one raffle with its entry count.
func (r *Raffles) Get(ctx context.Context, id uint) (models.Raffle, error) {
	var raffle models.Raffle
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.First(&raffle, id).Error; err != nil {
			if isNotFound(err) {
				return ErrRaffleNotFound
			}
			return storageError("load raffle", err)
		}
		list := []models.Raffle{raffle}
		if err := fillEntryCounts(db, list); err != nil {
			return err
		}
		raffle = list[0]
		return nil
	})
	return raffle, err
}

// Entrants lists a raffle's entries in entry order.
func (r *Raffles) Entrants(ctx context.Context, id uint) ([]models.RaffleEntry, error) {
	var entries []models.RaffleEntry
	err := r.store.Read(ctx, func(db *gorm.DB) error {
		var n int64
		if err := db.Model(&models.Raffle{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return storageError("load raffle", err)
		}
		if n == 0 {
			return ErrRaffleNotFound
		}
		if err := db.Where("raffle_id = ?", id).Order("id ASC").Find(&entries).Error; err != nil {
			return storageError("list entries", err)
		}
		return nil
	})
	return entries, err
}

// Enter buys the account one entry into an open raffle.
func (r *Raffles) Enter(ctx context.Context, accountID string, raffleID uint) (EntryResult, error) {
	var res EntryResult
	err := r.store.Write(ctx, "raffles.enter", func(tx *Tx) error {
		var raffle models.Raffle
		if err := tx.Clauses(forUpdate).First(&raffle, raffleID).Error; err != nil {
			if isNotFound(err) {
				return ErrRaffleNotFound
			}
			return storageError("load raffle", err)
		}
		if raffle.Status != models.RaffleActive || !r.now().Before(raffle.EndTime) {
			return ErrRaffleClosed
		}

		var n int64
		if err := tx.Model(&models.RaffleEntry{}).
			Where("raffle_id = ? AND account_id = ?", raffleID, accountID).
			Count(&n).Error; err != nil {
			return storageError("load entry", err)
		}
		if n > 0 {
			return ErrDuplicateEntry
		}

		entry := models.RaffleEntry{RaffleID: raffleID, AccountID: accountID, CoinsSpent: raffle.EntryCost}
		if err := tx.Create(&entry).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicateEntry
			}
			return storageError("insert entry", err)
		}
		balance, err := r.ledger.debitIfSufficient(tx, accountID, raffle.EntryCost, models.CategoryRaffle, "Raffle entry: "+raffle.Name)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", accountID).
			Update("raffle_entry_count", gorm.Expr("raffle_entry_count + 1")).Error; err != nil {
			return storageError("count entry", err)
		}
		res = EntryResult{RaffleID: raffleID, CoinsSpent: raffle.EntryCost, Balance: balance}
		tx.AfterCommit(r.metrics.ObserveRaffleEntry)
		return nil
	})
	if err != nil {
		r.metrics.ObserveFailure("raffle_enter", KindOf(err).String())
		return EntryResult{}, err
	}
	r.log.Info("raffle entered", zap.String("account", accountID), zap.Uint("raffle", raffleID), zap.Int64("cost", res.CoinsSpent))
	return res, nil
}

// DrawWinner picks one distinct entrant uniformly at random and completes the raffle.
// A raffle is drawn at most once.
func (r *Raffles) DrawWinner(ctx context.Context, raffleID uint) (DrawResult, error) {
	var res DrawResult
	err := r.store.Write(ctx, "raffles.draw", func(tx *Tx) error {
		var raffle models.Raffle
		if err := tx.Clauses(forUpdate).First(&raffle, raffleID).Error; err != nil {
			if isNotFound(err) {
				return ErrRaffleNotFound
			}
			return storageError("load raffle", err)
		}
		switch raffle.Status {
		case models.RaffleCompleted:
			return ErrRaffleAlreadyDrawn
		case models.RaffleStopped:
			return ErrRaffleClosed
		}

		var entrants []string
		if err := tx.Model(&models.RaffleEntry{}).
			Where("raffle_id = ?", raffleID).
			Distinct("account_id").
			Order("account_id ASC").
			Pluck("account_id", &entrants).Error; err != nil {
			return storageError("load entrants", err)
		}
		if len(entrants) == 0 {
			return ErrNoEntries
		}
		idx, err := r.pick(len(entrants))
		if err != nil {
			return storageError("pick winner", err)
		}
		if idx < 0 || idx >= len(entrants) {
			idx = 0
		}
		winner := entrants[idx]

		if err := tx.Model(&raffle).Updates(map[string]any{
			"winner_id": winner,
			"status":    models.RaffleCompleted,
		}).Error; err != nil {
			return storageError("complete raffle", err)
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", winner).
			Update("raffle_win_count", gorm.Expr("raffle_win_count + 1")).Error; err != nil {
			return storageError("count win", err)
		}
		raffle.WinnerID = &winner
		raffle.Status = models.RaffleCompleted
		raffle.EntryCount = int64(len(entrants))
		res = DrawResult{Raffle: raffle, WinnerID: winner, Entrants: len(entrants)}
		tx.AfterCommit(r.metrics.ObserveRaffleDrawn)
		return nil
	})
	if err != nil {
		r.metrics.ObserveFailure("raffle_draw", KindOf(err).String())
		return DrawResult{}, err
	}
	r.log.Info("raffle drawn", zap.Uint("raffle", raffleID), zap.String("winner", res.WinnerID), zap.Int("entrants", res.Entrants))
	return res, nil
}

// Stop halts a raffle without drawing a winner. Entry costs are not refunded.
func (r *Raffles) Stop(ctx context.Context, raffleID uint) (models.Raffle, error) {
	var raffle models.Raffle
	err := r.store.Write(ctx, "raffles.stop", func(tx *Tx) error {
		if err := tx.Clauses(forUpdate).First(&raffle, raffleID).Error; err != nil {
			if isNotFound(err) {
				return ErrRaffleNotFound
			}
			return storageError("load raffle", err)
		}
		if err := tx.Model(&raffle).Update("status", models.RaffleStopped).Error; err != nil {
			return storageError("stop raffle", err)
		}
		raffle.Status = models.RaffleStopped
		return nil
	})
	if err != nil {
		return models.Raffle{}, err
	}
	r.log.Info("raffle stopped", zap.Uint("raffle", raffleID))
	return raffle, nil
}

// Delete removes a raffle and its entries in any state. Entry costs are not refunded.
func (r *Raffles) Delete(ctx context.Context, raffleID uint) error {
	var entries int64
	err := r.store.Write(ctx, "raffles.delete", func(tx *Tx) error {
		var raffle models.Raffle
		if err := tx.Clauses(forUpdate).First(&raffle, raffleID).Error; err != nil {
			if isNotFound(err) {
				return ErrRaffleNotFound
			}
			return storageError("load raffle", err)
		}
		res := tx.Where("raffle_id = ?", raffleID).Delete(&models.RaffleEntry{})
		if res.Error != nil {
			return storageError("delete entries", res.Error)
		}
		entries = res.RowsAffected
		if err := tx.Delete(&raffle).Error; err != nil {
			return storageError("delete raffle", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Info("raffle deleted", zap.Uint("raffle", raffleID), zap.Int64("entries", entries))
	return nil
}

// DrawExpired draws every active raffle whose end time has passed. Raffles nobody entered are stopped.
// It does nothing unless auto_raffle_draw is enabled.
func (r *Raffles) DrawExpired(ctx context.Context) (drawn, stopped int, err error) {
	if !r.settings.Snapshot().AutoRaffleDraw {
		return 0, 0, nil
	}
	var ids []uint
	if err := r.store.Read(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Raffle{}).
			Where("status = ? AND end_time <= ?", models.RaffleActive, r.now()).
			Order("end_time ASC").
			Pluck("id", &ids).Error
	}); err != nil {
		return 0, 0, storageError("list expired raffles", err)
	}

	for _, id := range ids {
		_, derr := r.DrawWinner(ctx, id)
		switch {
		case derr == nil:
			drawn++
		case errors.Is(derr, ErrNoEntries):
			if _, serr := r.Stop(ctx, id); serr != nil {
				return drawn, stopped, serr
			}
			stopped++
		case KindOf(derr) == KindStorage:
			return drawn, stopped, derr
		}
	}
	return drawn, stopped, nil
}

func fillEntryCounts(db *gorm.DB, list []models.Raffle) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	var rows []struct {
		RaffleID uint
		Total    int64
	}
	if err := db.Model(&models.RaffleEntry{}).
		Select("raffle_id, COUNT(*) AS total").
		Where("raffle_id IN ?", ids).
		Group("raffle_id").
		Scan(&rows).Error; err != nil {
		return storageError("count entries", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.RaffleID] = row.Total
	}
	for i := range list {
		list[i].EntryCount = counts[list[i].ID]
	}
	return nil
}
