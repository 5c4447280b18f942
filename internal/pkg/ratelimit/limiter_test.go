package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowPerKey(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// Other keys have their own bucket.
	assert.True(t, l.Allow("b"))
}

func TestLimiter_DefaultBurst(t *testing.T) {
	l := New(0.001, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.False(t, l.Allow("k"))
}

func TestLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", New(0.001, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func countKeys(l *Limiter) int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestLimiter_EvictsIdleKeys(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := New(1, 2)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
	assert.Equal(t, 2, countKeys(l))

	clock = clock.Add(5 * time.Minute)
	assert.True(t, l.Allow("2.2.2.2"))

	clock = clock.Add(6 * time.Minute)
	assert.True(t, l.Allow("3.3.3.3"))

	// 1.1.1.1 was idle for 11 minutes; 2.2.2.2 was seen 6 minutes ago.
	_, ok := l.limiters.Load("1.1.1.1")
	assert.False(t, ok)
	_, ok = l.limiters.Load("2.2.2.2")
	assert.True(t, ok)
	assert.Equal(t, 2, countKeys(l))
}

func TestLimiter_IdleTTLCoversRefill(t *testing.T) {
	assert.Equal(t, defaultIdleTTL, New(1, 10).idleTTL)
	assert.Equal(t, 4000*time.Second, New(0.5, 2000).idleTTL)
	assert.Zero(t, New(0, 2).idleTTL)
}
