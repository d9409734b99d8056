package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/auth"
	"github.com/gin-gonic/gin"
)

func setupRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/limited", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func hit(router *gin.Engine) int {
	req, _ := http.NewRequest("POST", "/limited", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp.Code
}

func TestGlobalLimiterRejectsBeyondBurst(t *testing.T) {
	router := setupRouter(Global(1, 3))

	allowed, rejected := 0, 0
	for i := 0; i < 10; i++ {
		switch hit(router) {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			rejected++
		}
	}

	if allowed > 4 {
		t.Errorf("Expected at most burst+refill requests to pass, got %d", allowed)
	}
	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
}

func TestPerUserLimiterKeysIndependently(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Simulate an authenticated request by planting the user ID the way the
	// auth middleware would
	r.POST("/limited/:user", func(c *gin.Context) {
		if c.Param("user") == "1" {
			c.Set(auth.ContextKeyUserID, uint(1))
		} else {
			c.Set(auth.ContextKeyUserID, uint(2))
		}
	}, PerUser(1, 2), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	call := func(user string) int {
		req, _ := http.NewRequest("POST", "/limited/"+user, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	// Exhaust user 1's burst
	call("1")
	call("1")
	if code := call("1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected user 1 to be limited, got %d", code)
	}

	// User 2 has their own bucket
	if code := call("2"); code != http.StatusOK {
		t.Errorf("Expected user 2 to pass, got %d", code)
	}
}
