package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/logger"
	"code-reveal-backend/internal/middleware"
	"code-reveal-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": c.GetString("admin_subject")})
}

func request(r http.Handler, method, path, ip string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuthMiddleware(t *testing.T) {
	jwtService := services.NewJWTService(&config.Config{AdminJWTSecret: "operator-secret"})
	r := gin.New()
	r.GET("/admin", middleware.AdminAuthMiddleware(jwtService), ok)

	w := request(r, http.MethodGet, "/admin", "10.0.0.1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodGet, "/admin", "10.0.0.1", http.Header{"Authorization": {"Basic abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodGet, "/admin", "10.0.0.1", http.Header{"Authorization": {"Bearer not-a-jwt"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwtService.GenerateToken("ops", time.Hour)
	require.NoError(t, err)
	w = request(r, http.MethodGet, "/admin", "10.0.0.1", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"ops"}`, w.Body.String())
}

func TestAdminAuthMiddlewareDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/admin", middleware.AdminAuthMiddleware(services.NewJWTService(&config.Config{})), ok)

	w := request(r, http.MethodGet, "/admin", "10.0.0.1", http.Header{"Authorization": {"Bearer anything"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(1, 2, logger.Discard())
	r := gin.New()
	r.GET("/", middleware.RateLimitMiddleware(limiter), ok)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/", "10.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "10.0.0.2", nil).Code)

	assert.Equal(t, 2, limiter.Size())
	assert.Zero(t, limiter.Cleanup(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, limiter.Cleanup(time.Millisecond))
	assert.Zero(t, limiter.Size())
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := request(r, http.MethodGet, "/", "10.0.0.1", nil)
	generated := w.Header().Get(middleware.RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = request(r, http.MethodGet, "/", "10.0.0.1", http.Header{middleware.RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestCORSAndNoStore(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware(), middleware.NoStore())
	r.GET("/", ok)

	w := request(r, http.MethodOptions, "/", "10.0.0.1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(r, http.MethodGet, "/", "10.0.0.1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestRateLimitMiddlewareBehindTrustedProxy(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(1, 1, logger.Discard())
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies([]string{"10.1.0.0/16"}))
	r.GET("/", middleware.RateLimitMiddleware(limiter), ok)

	forwarded := func(client string) http.Header {
		return http.Header{"X-Forwarded-For": {client}}
	}

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "10.1.0.5", forwarded("198.51.100.1")).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "10.1.0.5", forwarded("198.51.100.2")).Code,
		"players behind the same proxy get separate buckets")
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/", "10.1.0.5", forwarded("198.51.100.1")).Code)

	untrusted := gin.New()
	require.NoError(t, untrusted.SetTrustedProxies(nil))
	untrusted.GET("/", middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(1, 1, logger.Discard())), ok)
	assert.Equal(t, http.StatusOK, request(untrusted, http.MethodGet, "/", "10.1.0.5", forwarded("198.51.100.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(untrusted, http.MethodGet, "/", "10.1.0.5", forwarded("198.51.100.2")).Code,
		"forwarded headers from an untrusted peer are ignored")
}
