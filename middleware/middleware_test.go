package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/miraclezmoon/TELEBOT-19/config"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/users/:uid", ok)
	r.POST("/users/:uid", ok)
	r.GET("/open", ok)
	return r
}

func serve(r *gin.Engine, method, path string, header map[string]string) int {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitPerAccount(t *testing.T) {
	// 2 per minute gives a burst of 1
	r := newEngine(RateLimitMiddleware(2))

	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/a", nil))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/users/a", nil))
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/b", nil))

	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/open", nil))
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/open", nil))
}

func TestMaintenanceGuard(t *testing.T) {
	on := true
	r := newEngine(MaintenanceGuard(func() bool { return on }))

	require.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodPost, "/users/a", nil))
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/a", nil))

	on = false
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/users/a", nil))
}

func TestBotRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "x", BotAPIKey: "k1"})
	r := newEngine(BotRequired())

	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", nil))
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", map[string]string{BotKeyHeader: "k2"}))
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/open", map[string]string{BotKeyHeader: "k1"}))

	config.Set(config.AppConfig{JWTSecret: "x"})
	require.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/open", nil))
}

func TestAdminRequiredRejectsBadHeaders(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "x"})
	r := newEngine(AdminRequired())

	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", nil))
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", map[string]string{"Authorization": "Token abc"}))
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", map[string]string{"Authorization": "Bearer not-a-jwt"}))
}
