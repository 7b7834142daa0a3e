package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miraclezmoon/TELEBOT-19/config"
	"github.com/miraclezmoon/TELEBOT-19/middleware"
	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// AdminAuthController handles dashboard login sessions.
type AdminAuthController struct {
	admins *services.Admins
}

// NewAdminAuthController creates a new AdminAuthController instance.
func NewAdminAuthController(admins *services.Admins) *AdminAuthController {
	return &AdminAuthController{admins: admins}
}

// Login verifies operator credentials and issues a JWT.
func (a *AdminAuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	admin, err := a.admins.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		if services.KindOf(err) == services.KindInvalidInput {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
			return
		}
		respondError(ctx, err)
		return
	}

	ttl := time.Duration(config.Get().AdminTokenTTLHours) * time.Hour
	token, expires, err := utils.GenerateAdminToken(admin.ID, admin.Username, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expires,
		"admin":      admin,
	})
}

// Logout revokes the presented token until it expires.
func (a *AdminAuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseAdminToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().AdminTokenTTLHours) * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	utils.RevokeToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current operator.
func (a *AdminAuthController) Me(ctx *gin.Context) {
	id, ok := ctx.Get(middleware.ContextAdminIDKey)
	adminID, isUint := id.(uint)
	if !ok || !isUint {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	admin, err := a.admins.Get(ctx.Request.Context(), adminID)
	if err != nil {
		if services.KindOf(err) == services.KindInvalidInput {
			utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
			return
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, admin)
}
