package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimit_Allow(t *testing.T) {
	l := NewIPRateLimit(10, 2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "budgets are per IP")
}

func TestIPRateLimit_Unlimited(t *testing.T) {
	l := NewIPRateLimit(0, 0)
	for i := 0; i < 50; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
}

func TestIPRateLimit_Cleanup(t *testing.T) {
	l := NewIPRateLimit(10, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Hour)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Cleanup(time.Hour))
	assert.Equal(t, 1, l.Tracked())
}

func TestLimitConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", LimitConnections(NewIPRateLimit(1, 1)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.RemoteAddr = "192.0.2.7:5000"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_ValidateMessageSize(t *testing.T) {
	assert.True(t, NewRateLimit(10, 0, 0).ValidateMessageSize(10))
	assert.False(t, NewRateLimit(10, 0, 0).ValidateMessageSize(11))
	assert.True(t, NewRateLimit(0, 0, 0).ValidateMessageSize(1<<20))
}
