package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(rl *FixedWindowLimiter, key KeyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/limited", RateLimit(rl, key), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/limited/:id", RateLimit(rl, key), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doRequest(router *gin.Engine, path, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":52000"
	router.ServeHTTP(w, req)
	return w
}

func TestFixedWindowAllowsUpToLimitThenRejects(t *testing.T) {
	rl := NewFixedWindowLimiter(3, time.Minute)
	router := newLimitedRouter(rl, KeyByIP)

	for i := 0; i < 3; i++ {
		w := doRequest(router, "/limited", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := doRequest(router, "/limited", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "request over the limit gets 429")
	assert.JSONEq(t, `{"error":"Too many requests, please try again later"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	rl := NewFixedWindowLimiter(2, time.Minute)
	router := newLimitedRouter(rl, KeyByIP)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, doRequest(router, "/limited", "10.0.0.1").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, "/limited", "10.0.0.1").Code)

	// A different caller still has a fresh window
	assert.Equal(t, http.StatusOK, doRequest(router, "/limited", "10.0.0.2").Code)
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	rl := NewFixedWindowLimiter(1, time.Minute)

	now := time.Unix(1_700_000_000, 0)
	rl.SetNowFunc(func() time.Time { return now })

	allowed, _, _ := rl.Take("key")
	require.True(t, allowed)
	allowed, _, _ = rl.Take("key")
	require.False(t, allowed)

	now = now.Add(time.Minute)
	allowed, remaining, reset := rl.Take("key")
	assert.True(t, allowed, "counter starts over once the window elapses")
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(time.Minute), reset)
}

func TestRateLimitHeaders(t *testing.T) {
	rl := NewFixedWindowLimiter(5, time.Minute)
	router := newLimitedRouter(rl, KeyByIP)

	w := doRequest(router, "/limited", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, reset, time.Now().Unix())
}

func TestKeyByUserFallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "10.0.0.9", KeyByUser(c))

	c.Set("userId", "user-1")
	assert.Equal(t, "user-1", KeyByUser(c))
}

func TestKeyByUserAndResourceScopesPerResource(t *testing.T) {
	rl := NewFixedWindowLimiter(1, time.Minute)
	router := newLimitedRouter(rl, KeyByUserAndResource)

	require.Equal(t, http.StatusOK, doRequest(router, "/limited/res-a", "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, "/limited/res-a", "10.0.0.1").Code)

	// Same caller, different resource: separate window
	assert.Equal(t, http.StatusOK, doRequest(router, "/limited/res-b", "10.0.0.1").Code)
}

func TestTakeRemainingCountsDown(t *testing.T) {
	rl := NewFixedWindowLimiter(3, time.Minute)

	_, remaining, _ := rl.Take("k")
	assert.Equal(t, 2, remaining)
	_, remaining, _ = rl.Take("k")
	assert.Equal(t, 1, remaining)
	_, remaining, _ = rl.Take("k")
	assert.Equal(t, 0, remaining)
	allowed, remaining, _ := rl.Take("k")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}
