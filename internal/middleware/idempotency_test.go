package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// unreachableClient returns a client whose store is down, to verify the
// middleware degrades to plain execution instead of failing requests.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func idempotencyRouter(client *redis.Client, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware(client))
	handle := func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	}
	r.POST("/v1/trips", handle)
	r.GET("/v1/trips", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestIdempotency_ReadsBypassReplayStore(t *testing.T) {
	var calls int
	r := idempotencyRouter(unreachableClient(), &calls)

	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
}

func TestIdempotency_MissingKeyRunsHandler(t *testing.T) {
	var calls int
	r := idempotencyRouter(unreachableClient(), &calls)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/trips", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
}

func TestIdempotency_UnavailableStoreFallsThrough(t *testing.T) {
	var calls int
	r := idempotencyRouter(unreachableClient(), &calls)

	req := httptest.NewRequest(http.MethodPost, "/v1/trips", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201 with store down, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Error("fresh execution must not be marked as a replay")
	}
}

func TestIdempotency_DeleteIsReplayGuarded(t *testing.T) {
	if !isMutation(http.MethodDelete) {
		t.Error("delete must participate in replay protection")
	}
	if isMutation(http.MethodGet) || isMutation(http.MethodHead) {
		t.Error("reads must not participate in replay protection")
	}
}
