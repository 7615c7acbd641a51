package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(burst int) (*Limiter, *time.Time) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: burst})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestReserveExhaustsBurst(t *testing.T) {
	rl, now := newTestLimiter(2)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))

	ok, wait := rl.Reserve("a")
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	assert.True(t, rl.Allow("b"), "clients have separate buckets")

	*now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "a token refills after one second")
}

func TestCleanupRemovesIdleClients(t *testing.T) {
	rl, now := newTestLimiter(1)
	rl.Allow("a")
	*now = now.Add(5 * time.Minute)
	rl.Allow("b")

	*now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(1)
	limited := 0
	h := rl.Middleware(
		func(*http.Request) string { return "1.2.3.4" },
		func(*http.Request) { limited++ },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/services/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)
}
