package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// AdminController serves the operator dashboard.
type AdminController struct {
	core *services.Core
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(core *services.Core) *AdminController {
	return &AdminController{core: core}
}

// ListAccounts returns every account, newest first.
func (a *AdminController) ListAccounts(ctx *gin.Context) {
	list, err := a.core.Accounts.All(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// AccountTransactions returns one account's ledger entries.
func (a *AdminController) AccountTransactions(ctx *gin.Context) {
	list, err := a.core.Ledger.History(ctx.Request.Context(), ctx.Param("uid"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// AdjustBalance applies a signed manual correction to an account.
func (a *AdminController) AdjustBalance(ctx *gin.Context) {
	type request struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	acct, err := a.core.Ledger.Adjust(ctx.Request.Context(), ctx.Param("uid"), req.Amount, req.Reason)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, acct)
}

// Transactions returns the most recent ledger entries across all accounts.
func (a *AdminController) Transactions(ctx *gin.Context) {
	list, err := a.core.Ledger.Entries(ctx.Request.Context(), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// ListRaffles returns all raffles with their entry counts.
func (a *AdminController) ListRaffles(ctx *gin.Context) {
	list, err := a.core.Raffles.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// CreateRaffle opens a raffle.
func (a *AdminController) CreateRaffle(ctx *gin.Context) {
	var in services.RaffleInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	raffle, err := a.core.Raffles.Create(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixRaffles)
	utils.Created(ctx, raffle)
}

// RaffleEntries lists the entries of a raffle.
func (a *AdminController) RaffleEntries(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	list, err := a.core.Raffles.Entrants(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// DrawRaffle picks the winner of a raffle.
func (a *AdminController) DrawRaffle(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	res, err := a.core.Raffles.DrawWinner(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixRaffles)
	utils.Success(ctx, res)
}

// StopRaffle closes a raffle without drawing.
func (a *AdminController) StopRaffle(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	raffle, err := a.core.Raffles.Stop(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixRaffles)
	utils.Success(ctx, raffle)
}

// DeleteRaffle removes a raffle and its entries.
func (a *AdminController) DeleteRaffle(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.core.Raffles.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixRaffles)
	utils.Success(ctx, gin.H{"id": id})
}

// ListProducts returns the active catalog including sold-out products.
func (a *AdminController) ListProducts(ctx *gin.Context) {
	list, err := a.core.Shop.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// CreateProduct adds a product to the shop.
func (a *AdminController) CreateProduct(ctx *gin.Context) {
	var in services.ProductInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	p, err := a.core.Shop.CreateProduct(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixProducts)
	utils.Created(ctx, p)
}

// UpdateProduct replaces a product's fields.
func (a *AdminController) UpdateProduct(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var in services.ProductInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	p, err := a.core.Shop.UpdateProduct(ctx.Request.Context(), id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixProducts)
	utils.Success(ctx, p)
}

// DeleteProduct takes a product off sale.
func (a *AdminController) DeleteProduct(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := a.core.Shop.DeleteProduct(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixProducts)
	utils.Success(ctx, gin.H{"id": id})
}

// GetSettings returns the current settings snapshot.
func (a *AdminController) GetSettings(ctx *gin.Context) {
	utils.Success(ctx, a.core.Settings.Snapshot())
}

// UpdateSettings saves a partial set of settings. Unknown keys or bad values reject the whole batch.
func (a *AdminController) UpdateSettings(ctx *gin.Context) {
	var values map[string]any
	if err := ctx.ShouldBindJSON(&values); err != nil || len(values) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	snap, err := a.core.Settings.Save(ctx.Request.Context(), values)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, snap)
}

// Stats returns the dashboard summary for today.
func (a *AdminController) Stats(ctx *gin.Context) {
	stats, err := a.core.Accounts.QuickStats(ctx.Request.Context(), utils.Today())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
