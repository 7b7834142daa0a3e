package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/miraclezmoon/TELEBOT-19/config"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

const (
	// ContextAdminIDKey stores the authenticated operator ID in Gin context.
	ContextAdminIDKey = "admin_id"
	// ContextAdminNameKey stores the operator username.
	ContextAdminNameKey = "admin_username"
	// ContextTokenKey keeps the raw bearer token so logout can revoke it.
	ContextTokenKey = "admin_token"

	// BotKeyHeader carries the shared secret of the bot process.
	BotKeyHeader = "X-Bot-Key"
)

// AdminRequired ensures the request carries a valid, unrevoked operator JWT.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortError(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.AbortError(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.AbortError(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		if utils.IsTokenRevoked(tokenString) {
			utils.AbortError(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		claims, err := utils.ParseAdminToken(tokenString)
		if err != nil {
			utils.AbortError(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		ctx.Set(ContextAdminIDKey, claims.AdminID)
		ctx.Set(ContextAdminNameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// BotRequired checks the shared bot key. An empty BotAPIKey disables the check.
func BotRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		want := config.Get().BotAPIKey
		if want == "" {
			ctx.Next()
			return
		}
		got := ctx.GetHeader(BotKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			utils.AbortError(ctx, http.StatusUnauthorized, 40110, "invalid bot key")
			return
		}
		ctx.Next()
	}
}

// MaintenanceGuard rejects bot mutations while maintenance mode is on. Reads still pass.
func MaintenanceGuard(enabled func() bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet && enabled() {
			utils.AbortError(ctx, http.StatusServiceUnavailable, 50301, "bot is under maintenance")
			return
		}
		ctx.Next()
	}
}
