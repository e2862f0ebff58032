package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	rl.now = clk.now
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestLimiter_WindowResets(t *testing.T) {
	rl, clk := newTestLimiter(t, 2)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")

	clk.t = clk.t.Add(20 * time.Second)
	assert.False(t, rl.Allow("1.2.3.4"), "steady traffic does not extend the window")
	assert.Equal(t, 40*time.Second, rl.RetryAfter("1.2.3.4"))

	clk.t = clk.t.Add(40 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(2), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clk := newTestLimiter(t, 5)
	rl.Allow("a")
	clk.t = clk.t.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
	rl.Stop()
	rl.Stop()
}

func TestLimiter_MiddlewareOnlyLimitsSelectedRequests(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	onlyWrites := func(r *http.Request) bool { return r.Method != http.MethodGet }
	var retry time.Duration
	h := rl.Middleware(
		func(*http.Request) string { return "9.9.9.9" },
		onlyWrites,
		func(w http.ResponseWriter, _ *http.Request, after time.Duration) {
			retry = after
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/bommels", nil))
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodPost))
	assert.Equal(t, time.Minute, retry)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet))
}
