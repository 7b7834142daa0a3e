package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/miraclezmoon/TELEBOT-19/config"
	"github.com/miraclezmoon/TELEBOT-19/middleware"
	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	core   *services.Core
	token  string
	botKey string
}

func setupServer(t *testing.T, mutate func(*config.AppConfig)) *testServer {
	t.Helper()
	cfg := config.AppConfig{
		JWTSecret: "test-secret",
		GinMode:   "test",
		GinPath:   filepath.Join(t.TempDir(), "gin.log"),
		DBDriver:  "sqlite",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	config.Set(cfg)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	core := services.New(db, services.Options{Metrics: utils.Metrics()})
	require.NoError(t, core.Init(context.Background()))

	return &testServer{t: t, engine: SetupRouter(core), core: core, botKey: cfg.BotAPIKey}
}

func (s *testServer) do(method, path string, body any) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" && strings.HasPrefix(path, "/api/v1/admin") {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.botKey != "" {
		req.Header.Set(middleware.BotKeyHeader, s.botKey)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (s *testServer) login() {
	s.t.Helper()
	_, err := s.core.Admins.Create(context.Background(), "root", "correct-horse")
	require.NoError(s.t, err)
	status, env := s.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "correct-horse"})
	require.Equal(s.t, http.StatusOK, status)
	var data struct {
		Token string `json:"token"`
	}
	decode(s.t, env, &data)
	require.NotEmpty(s.t, data.Token)
	s.token = data.Token
}

func (s *testServer) register(uid string) {
	s.t.Helper()
	status, _ := s.do(http.MethodPost, "/api/v1/bot/users", gin.H{"id": uid, "display_name": "User " + uid})
	require.Equal(s.t, http.StatusCreated, status)
}

func (s *testServer) fund(uid string, amount int64) {
	s.t.Helper()
	status, _ := s.do(http.MethodPost, "/api/v1/admin/accounts/"+uid+"/adjust", gin.H{"amount": amount, "reason": "test funding"})
	require.Equal(s.t, http.StatusOK, status)
}

func decode(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func kindOf(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		Kind string `json:"kind"`
	}
	decode(t, env, &data)
	return data.Kind
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupServer(t, nil)

	status, env := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, env.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	status, env = s.do(http.MethodGet, "/api/v1/nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, 40400, env.Code)
}

func TestBotRegisterAndCheckIn(t *testing.T) {
	s := setupServer(t, nil)

	s.register("u1")
	status, env := s.do(http.MethodPost, "/api/v1/bot/users", gin.H{"id": "u1", "display_name": "Renamed"})
	require.Equal(t, http.StatusOK, status)
	var reg struct {
		Created bool           `json:"created"`
		Account models.Account `json:"account"`
	}
	decode(t, env, &reg)
	require.False(t, reg.Created)
	require.Equal(t, "Renamed", reg.Account.DisplayName)

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/u1/checkin", nil)
	require.Equal(t, http.StatusOK, status)
	var res services.CheckinResult
	decode(t, env, &res)
	require.Equal(t, int64(1), res.Coins)
	require.Equal(t, int64(1), res.Balance)
	require.Equal(t, utils.Today(), res.Date)

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/u1/checkin", nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_done", kindOf(t, env))

	status, env = s.do(http.MethodGet, "/api/v1/bot/users/u1", nil)
	require.Equal(t, http.StatusOK, status)
	var profile services.Profile
	decode(t, env, &profile)
	require.Equal(t, int64(1), profile.Balance)

	status, env = s.do(http.MethodGet, "/api/v1/bot/users/u1/checkins", nil)
	require.Equal(t, http.StatusOK, status)
	var month struct {
		Days []string `json:"days"`
	}
	decode(t, env, &month)
	require.Equal(t, []string{utils.Today()}, month.Days)

	status, env = s.do(http.MethodGet, "/api/v1/bot/users/u1/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	var entries []models.LedgerEntry
	decode(t, env, &entries)
	require.Len(t, entries, 1)
	require.Equal(t, models.CategoryCheckin, entries[0].Category)

	status, _ = s.do(http.MethodGet, "/api/v1/bot/users/u1/checkins?month=13", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/ghost/checkin", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", kindOf(t, env))
}

func TestBotReferral(t *testing.T) {
	s := setupServer(t, nil)
	s.register("alice")
	s.register("bob")

	status, env := s.do(http.MethodPost, "/api/v1/bot/users/alice/referral-code", nil)
	require.Equal(t, http.StatusOK, status)
	var stats services.ReferralStats
	decode(t, env, &stats)
	require.NotEmpty(t, stats.Code)

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/alice/referral", gin.H{"code": stats.Code})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_input", kindOf(t, env))

	status, _ = s.do(http.MethodPost, "/api/v1/bot/users/bob/referral", gin.H{"code": strings.ToLower(stats.Code)})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/bob/referral", gin.H{"code": stats.Code})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_done", kindOf(t, env))

	status, env = s.do(http.MethodPost, "/api/v1/bot/users/alice/referral-code", nil)
	require.Equal(t, http.StatusOK, status)
	decode(t, env, &stats)
	require.Equal(t, int64(1), stats.Referrals)
	require.Equal(t, int64(1), stats.BonusEarned)
}

func TestRaffleFlow(t *testing.T) {
	s := setupServer(t, nil)
	s.login()
	s.register("rich")
	s.register("poor")
	s.fund("rich", 100)

	status, env := s.do(http.MethodPost, "/api/v1/admin/raffles", gin.H{
		"name":       "<b>Weekly</b>",
		"prize":      "Gift card",
		"entry_cost": 10,
		"end_time":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status)
	var raffle models.Raffle
	decode(t, env, &raffle)
	require.Equal(t, "Weekly", raffle.Name)

	status, env = s.do(http.MethodGet, "/api/v1/bot/raffles", nil)
	require.Equal(t, http.StatusOK, status)
	var active []models.Raffle
	decode(t, env, &active)
	require.Len(t, active, 1)

	enter := fmt.Sprintf("/api/v1/bot/users/%%s/raffles/%d/enter", raffle.ID)
	status, env = s.do(http.MethodPost, fmt.Sprintf(enter, "poor"), nil)
	require.Equal(t, http.StatusPaymentRequired, status)
	require.Equal(t, "insufficient_funds", kindOf(t, env))

	status, env = s.do(http.MethodPost, fmt.Sprintf(enter, "rich"), nil)
	require.Equal(t, http.StatusOK, status)
	var entry services.EntryResult
	decode(t, env, &entry)
	require.Equal(t, int64(90), entry.Balance)

	status, _ = s.do(http.MethodPost, fmt.Sprintf(enter, "rich"), nil)
	require.Equal(t, http.StatusConflict, status)

	status, env = s.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/raffles/%d/entries", raffle.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var entries []models.RaffleEntry
	decode(t, env, &entries)
	require.Len(t, entries, 1)

	status, env = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/raffles/%d/draw", raffle.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var draw services.DrawResult
	decode(t, env, &draw)
	require.Equal(t, "rich", draw.WinnerID)

	status, _ = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/raffles/%d/draw", raffle.ID), nil)
	require.Equal(t, http.StatusConflict, status)

	status, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/raffles/%d", raffle.ID), nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodPost, "/api/v1/admin/raffles/abc/stop", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestShopFlow(t *testing.T) {
	s := setupServer(t, nil)
	s.login()
	s.register("buyer")
	s.fund("buyer", 50)

	status, env := s.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"name": "Sticker", "category": "merch", "price": 30, "stock": 1,
	})
	require.Equal(t, http.StatusCreated, status)
	var product models.Product
	decode(t, env, &product)

	status, _ = s.do(http.MethodPost, "/api/v1/admin/products", gin.H{"name": "Free", "category": "merch", "price": 0})
	require.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodGet, "/api/v1/bot/products", nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.Product
	decode(t, env, &list)
	require.Len(t, list, 1)

	buy := fmt.Sprintf("/api/v1/bot/users/buyer/products/%d/purchase", product.ID)
	status, env = s.do(http.MethodPost, buy, nil)
	require.Equal(t, http.StatusOK, status)
	var res services.PurchaseResult
	decode(t, env, &res)
	require.Equal(t, int64(20), res.Balance)
	require.NotEmpty(t, res.Purchase.OrderNo)

	status, env = s.do(http.MethodPost, buy, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "out_of_stock", kindOf(t, env))

	status, env = s.do(http.MethodGet, "/api/v1/bot/users/buyer/purchases", nil)
	require.Equal(t, http.StatusOK, status)
	var purchases []models.Purchase
	decode(t, env, &purchases)
	require.Len(t, purchases, 1)

	status, _ = s.do(http.MethodPut, fmt.Sprintf("/api/v1/admin/products/%d", product.ID), gin.H{
		"name": "Sticker", "category": "merch", "price": 30, "stock": 5,
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%d", product.ID), nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodDelete, "/api/v1/admin/products/999", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestAdminAuth(t *testing.T) {
	s := setupServer(t, nil)

	status, env := s.do(http.MethodGet, "/api/v1/admin/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 40101, env.Code)

	_, err := s.core.Admins.Create(context.Background(), "root", "correct-horse")
	require.NoError(t, err)
	status, _ = s.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "root", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, status)

	s.login()
	status, env = s.do(http.MethodGet, "/api/v1/admin/me", nil)
	require.Equal(t, http.StatusOK, status)
	var admin models.Admin
	decode(t, env, &admin)
	require.Equal(t, "root", admin.Username)

	status, _ = s.do(http.MethodPost, "/api/v1/admin/logout", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(http.MethodGet, "/api/v1/admin/me", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 40104, env.Code)
}

func TestSettingsAndMaintenance(t *testing.T) {
	s := setupServer(t, nil)
	s.login()
	s.register("u1")

	status, env := s.do(http.MethodPut, "/api/v1/admin/settings", gin.H{"daily_coin_base": 5, "maintenance_mode": true})
	require.Equal(t, http.StatusOK, status)
	var snap services.SettingsSnapshot
	decode(t, env, &snap)
	require.Equal(t, int64(5), snap.DailyCoinBase)
	require.True(t, snap.MaintenanceMode)

	status, _ = s.do(http.MethodPost, "/api/v1/bot/users/u1/checkin", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = s.do(http.MethodGet, "/api/v1/bot/users/u1", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPut, "/api/v1/admin/settings", gin.H{"maintenance_mode": false})
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(http.MethodPost, "/api/v1/bot/users/u1/checkin", nil)
	require.Equal(t, http.StatusOK, status)
	var res services.CheckinResult
	decode(t, env, &res)
	require.Equal(t, int64(5), res.Coins)

	status, _ = s.do(http.MethodPut, "/api/v1/admin/settings", gin.H{"no_such_key": 1})
	require.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, status)
	var stats services.QuickStats
	decode(t, env, &stats)
	require.Equal(t, int64(1), stats.TotalAccounts)
	require.Equal(t, int64(1), stats.CheckinsToday)
}

func TestBotKeyRequired(t *testing.T) {
	s := setupServer(t, func(c *config.AppConfig) { c.BotAPIKey = "bot-secret" })
	s.register("u1")

	s.botKey = "wrong"
	status, env := s.do(http.MethodGet, "/api/v1/bot/users/u1", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 40110, env.Code)
}
