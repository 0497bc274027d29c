package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/whoami", AuthRequired(secret), HospitalRequired(), func(c *gin.Context) {
		id, role := CurrentUser(c)
		c.String(http.StatusOK, string(role)+":"+id)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func tokens(t *testing.T, userID string, role models.UserType) *utils.TokenPair {
	t.Helper()
	pair, err := utils.GenerateTokenPair(userID, string(role), "", secret, time.Hour, time.Hour)
	require.NoError(t, err)
	return pair
}

func TestAuthRequired(t *testing.T) {
	r := protectedRouter()

	w := get(r, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(r, "/whoami", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	hospital := tokens(t, "hosp-001", models.UserTypeHospital)
	w = get(r, "/whoami", hospital.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hospital:hosp-001", w.Body.String())

	// Websocket clients pass the token as a query parameter.
	w = get(r, "/whoami?token="+hospital.AccessToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/whoami", hospital.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	driver := tokens(t, "d1", models.UserTypeDriver)
	w = get(r, "/whoami", driver.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := tokens(t, "root", models.UserType("admin"))
	w = get(r, "/whoami", admin.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := protectedRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	limiter, err := NewRateLimiter("sos", "2-M", nil, logger.Discard())
	require.NoError(t, err)

	r := gin.New()
	r.POST("/sos", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	send := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sos", nil)
		req.RemoteAddr = ip + ":5000"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusAccepted, send("10.0.0.1").Code)
	w := send("10.0.0.1")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other callers are counted separately.
	assert.Equal(t, http.StatusAccepted, send("10.0.0.2").Code)
}

func TestRateLimiterRejectsBadRate(t *testing.T) {
	_, err := NewRateLimiter("otp", "often", nil, logger.Discard())
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://hospital.example"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://hospital.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hospital.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
