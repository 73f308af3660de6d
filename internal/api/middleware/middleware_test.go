package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/ideagraph/pkg/auth"
)

func init() { gin.SetMode(gin.TestMode) }

func whoami(c *gin.Context) { c.String(http.StatusOK, UserID(c)) }

func do(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("0123456789abcdef", time.Hour)
	token, err := tokens.Issue("u1")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", Auth(tokens), whoami)

	assert.Equal(t, http.StatusUnauthorized, do(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, map[string]string{"Authorization": "Token " + token}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, map[string]string{"Authorization": "Bearer garbage"}).Code)

	other := auth.NewTokenIssuer("fedcba9876543210", time.Hour)
	foreign, err := other.Issue("u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, map[string]string{"Authorization": "Bearer " + foreign}).Code)

	w := do(r, map[string]string{"Authorization": "bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("0123456789abcdef", time.Hour)
	token, err := tokens.Issue("u2")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", OptionalAuth(tokens), whoami)

	w := do(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, "u2", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(NewIPRateLimiter(rate.Limit(1), 2)), whoami)

	assert.Equal(t, http.StatusOK, do(r, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, nil).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(NewIPRateLimiter(0, 0)), whoami)
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, do(r, nil).Code)
	}
}

func TestIPRateLimiterPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.Limiter("1.1.1.1"), l.Limiter("1.1.1.1"))
	assert.NotSame(t, l.Limiter("1.1.1.1"), l.Limiter("2.2.2.2"))
	assert.True(t, l.Limiter("2.2.2.2").Allow())
}

func TestLoggerRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logger(), Metrics())
	r.GET("/", whoami)

	w := do(r, nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	w = do(r, map[string]string{requestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}
