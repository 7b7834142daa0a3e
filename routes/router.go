package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miraclezmoon/TELEBOT-19/config"
	"github.com/miraclezmoon/TELEBOT-19/controllers"
	"github.com/miraclezmoon/TELEBOT-19/middleware"
	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(core *services.Core) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access logs go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.BotKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	botController := controllers.NewBotController(core)
	adminAuthController := controllers.NewAdminAuthController(core.Admins)
	adminController := controllers.NewAdminController(core)

	api := r.Group("/api/v1")

	bot := api.Group("/bot")
	bot.Use(
		middleware.BotRequired(),
		middleware.MaintenanceGuard(func() bool { return core.Settings.Snapshot().MaintenanceMode }),
		middleware.RateLimitMiddleware(cfg.RateLimitPerMinute),
	)
	bot.POST("/users", botController.Register)
	bot.GET("/users/:uid", botController.Profile)
	bot.POST("/users/:uid/checkin", botController.CheckIn)
	bot.GET("/users/:uid/checkins", botController.MonthlyCheckins)
	bot.POST("/users/:uid/referral-code", botController.ReferralCode)
	bot.POST("/users/:uid/referral", botController.Referral)
	bot.GET("/users/:uid/transactions", botController.Transactions)
	bot.GET("/users/:uid/purchases", botController.Purchases)
	bot.POST("/users/:uid/raffles/:id/enter", botController.EnterRaffle)
	bot.POST("/users/:uid/products/:id/purchase", botController.Purchase)
	bot.GET("/raffles", botController.ActiveRaffles)
	bot.GET("/products", botController.Products)

	admin := api.Group("/admin")
	admin.POST("/login", middleware.RateLimitMiddleware(cfg.RateLimitPerMinute), adminAuthController.Login)

	protected := admin.Group("")
	protected.Use(middleware.AdminRequired())
	protected.POST("/logout", adminAuthController.Logout)
	protected.GET("/me", adminAuthController.Me)
	protected.GET("/accounts", adminController.ListAccounts)
	protected.GET("/accounts/:uid/transactions", adminController.AccountTransactions)
	protected.POST("/accounts/:uid/adjust", adminController.AdjustBalance)
	protected.GET("/transactions", adminController.Transactions)
	protected.GET("/raffles", adminController.ListRaffles)
	protected.POST("/raffles", adminController.CreateRaffle)
	protected.GET("/raffles/:id/entries", adminController.RaffleEntries)
	protected.POST("/raffles/:id/draw", adminController.DrawRaffle)
	protected.POST("/raffles/:id/stop", adminController.StopRaffle)
	protected.DELETE("/raffles/:id", adminController.DeleteRaffle)
	protected.GET("/products", adminController.ListProducts)
	protected.POST("/products", adminController.CreateProduct)
	protected.PUT("/products/:id", adminController.UpdateProduct)
	protected.DELETE("/products/:id", adminController.DeleteProduct)
	protected.GET("/settings", adminController.GetSettings)
	protected.PUT("/settings", adminController.UpdateSettings)
	protected.GET("/stats", adminController.Stats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
