package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

const (
	activeRafflesKey     = utils.CachePrefixRaffles + "active"
	availableProductsKey = utils.CachePrefixProducts + "available"
)

// BotController serves the chat bot process. Every account is addressed by the platform user id in :uid.
type BotController struct {
	core *services.Core
}

// NewBotController creates a new BotController instance.
func NewBotController(core *services.Core) *BotController {
	return &BotController{core: core}
}

// Register creates the account on first contact, or refreshes its names.
func (b *BotController) Register(ctx *gin.Context) {
	type request struct {
		ID          string `json:"id" binding:"required"`
		DisplayName string `json:"display_name"`
		Handle      string `json:"handle"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	acct, created, err := b.core.Accounts.Register(ctx.Request.Context(), req.ID, req.DisplayName, req.Handle)
	if err != nil {
		respondError(ctx, err)
		return
	}
	payload := gin.H{"account": acct, "created": created}
	if created {
		utils.Created(ctx, payload)
		return
	}
	utils.Success(ctx, payload)
}

// Profile returns the account with its referral and purchase totals.
func (b *BotController) Profile(ctx *gin.Context) {
	profile, err := b.core.Accounts.Profile(ctx.Request.Context(), ctx.Param("uid"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, profile)
}

// CheckIn claims today's reward.
func (b *BotController) CheckIn(ctx *gin.Context) {
	res, err := b.core.Rewards.CheckIn(ctx.Request.Context(), ctx.Param("uid"), utils.Today())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// MonthlyCheckins lists the days of a month the account checked in. Defaults to the current month.
func (b *BotController) MonthlyCheckins(ctx *gin.Context) {
	now := utils.Now()
	year, month := now.Year(), now.Month()
	if v := ctx.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 9999 {
			utils.Error(ctx, http.StatusBadRequest, 40004, "invalid year")
			return
		}
		year = y
	}
	if v := ctx.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			utils.Error(ctx, http.StatusBadRequest, 40005, "invalid month")
			return
		}
		month = time.Month(m)
	}

	days, err := b.core.Rewards.MonthlyCheckins(ctx.Request.Context(), ctx.Param("uid"), year, month)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"year": year, "month": int(month), "days": days})
}

// ReferralCode returns the account's referral code, generating it on first use, plus its referral totals.
func (b *BotController) ReferralCode(ctx *gin.Context) {
	uid := ctx.Param("uid")
	if _, err := b.core.Rewards.GenerateReferralCode(ctx.Request.Context(), uid); err != nil {
		respondError(ctx, err)
		return
	}
	stats, err := b.core.Rewards.ReferralStats(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// Referral redeems a friend's referral code for the calling account.
func (b *BotController) Referral(ctx *gin.Context) {
	type request struct {
		Code string `json:"code" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	res, err := b.core.Rewards.ProcessReferral(ctx.Request.Context(), ctx.Param("uid"), req.Code)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Transactions lists the account's ledger entries, newest first.
func (b *BotController) Transactions(ctx *gin.Context) {
	list, err := b.core.Ledger.History(ctx.Request.Context(), ctx.Param("uid"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// Purchases lists the account's shop orders.
func (b *BotController) Purchases(ctx *gin.Context) {
	list, err := b.core.Shop.Purchases(ctx.Request.Context(), ctx.Param("uid"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// ActiveRaffles lists raffles open for entry, soonest ending first.
func (b *BotController) ActiveRaffles(ctx *gin.Context) {
	var list []models.Raffle
	if utils.CacheGetJSON(activeRafflesKey, &list) {
		utils.Success(ctx, list)
		return
	}
	list, err := b.core.Raffles.ListActive(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.CacheSetJSON(activeRafflesKey, list)
	utils.Success(ctx, list)
}

// EnterRaffle pays the entry cost of a raffle.
func (b *BotController) EnterRaffle(ctx *gin.Context) {
	raffleID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	res, err := b.core.Raffles.Enter(ctx.Request.Context(), ctx.Param("uid"), raffleID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixRaffles)
	utils.Success(ctx, res)
}

// Products lists products in stock.
func (b *BotController) Products(ctx *gin.Context) {
	var list []models.Product
	if utils.CacheGetJSON(availableProductsKey, &list) {
		utils.Success(ctx, list)
		return
	}
	list, err := b.core.Shop.ListAvailable(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.CacheSetJSON(availableProductsKey, list)
	utils.Success(ctx, list)
}

// Purchase buys one unit of a product.
func (b *BotController) Purchase(ctx *gin.Context) {
	productID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	res, err := b.core.Shop.Purchase(ctx.Request.Context(), ctx.Param("uid"), productID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePrefixProducts)
	utils.Success(ctx, res)
}
