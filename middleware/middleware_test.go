package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cppla/board/config"
	"github.com/cppla/board/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	os.Exit(m.Run())
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitMiddleware(4), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[w.Code]++
	}
	// burst is half the per-minute allowance
	require.Equal(t, 2, codes[http.StatusOK])
	require.Equal(t, 3, codes[http.StatusTooManyRequests])
}

func TestLimiterSweepRunsOncePerIdleWindow(t *testing.T) {
	set := &limiterSet{limiters: map[string]*rateLimiter{}, limit: rate.Every(time.Second), burst: 1}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	set.allow("a", t0)
	set.allow("b", t0.Add(time.Minute))
	require.Len(t, set.limiters, 2)

	// a is idle past its ttl and the sweep window has passed
	set.allow("c", t0.Add(limiterIdleTTL+10*time.Second))
	require.NotContains(t, set.limiters, "a")
	require.Contains(t, set.limiters, "b")

	// b is idle now, but the next sweep is not due yet
	set.allow("c", t0.Add(7*time.Minute))
	require.Contains(t, set.limiters, "b")

	set.allow("c", t0.Add(2*limiterIdleTTL+time.Minute))
	require.NotContains(t, set.limiters, "b")
	require.Contains(t, set.limiters, "c")
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"user_id": ctx.GetUint(ContextUserIDKey), "jti": ctx.GetString(ContextTokenIDKey)})
	})

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	access, err := utils.GenerateToken(5, "a@example.com", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	refresh, err := utils.GenerateToken(5, "a@example.com", utils.TokenTypeRefresh, time.Minute)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, call(""))
	require.Equal(t, http.StatusUnauthorized, call("Token "+access))
	require.Equal(t, http.StatusUnauthorized, call("Bearer "+refresh))
	require.Equal(t, http.StatusOK, call("Bearer "+access))

	claims, err := utils.ParseToken(access, utils.TokenTypeAccess)
	require.NoError(t, err)
	utils.BlacklistToken(context.Background(), claims.ID, claims.ExpiresAt.Time)
	require.Equal(t, http.StatusUnauthorized, call("Bearer "+access))
}
