package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedEngine(t *testing.T, limit int, allow AllowFunc) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/login", RateLimit(rdb, limit, time.Minute, KeyByIP(), allow), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, mr
}

func hit(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	r, mr := newLimitedEngine(t, 3, nil)

	for i := 1; i <= 3; i++ {
		rec := hit(r, "203.0.113.5:4000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"2", "1", "0"}[i-1], rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := hit(r, "203.0.113.5:4000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// other clients have their own counter
	assert.Equal(t, http.StatusOK, hit(r, "198.51.100.1:4000").Code)

	// the window expires
	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "203.0.113.5:4000").Code)
}

func TestRateLimit_WindowExpiry(t *testing.T) {
	r, mr := newLimitedEngine(t, 5, nil)
	hit(r, "203.0.113.5:4000")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "1", mustGet(t, mr, keys[0]))
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestRateLimit_AllowBypasses(t *testing.T) {
	r, mr := newLimitedEngine(t, 1, AllowPrivateIP())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.7:4000").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	r, mr := newLimitedEngine(t, 1, nil)
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := hit(r, "203.0.113.5:4000")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
