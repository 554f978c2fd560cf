package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/timboisvert/cocoscout-sub005/internal/config"
)

func rateCtx(t *testing.T, mutate func(*http.Request, echo.Context)) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/slots/5/claim", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/slots/:id/claim")
	if mutate != nil {
		mutate(req, c)
	}
	return c
}

func TestBuildRateKey_AuthenticatedUser(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	c := rateCtx(t, func(_ *http.Request, c echo.Context) {
		c.Set("user_id", float64(12))
	})

	assert.Equal(t, "rl:user:user:12", buildRateKey(cfg, c))
}

func TestBuildRateKey_GuestKeyedByHoldToken(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	c := rateCtx(t, func(req *http.Request, _ echo.Context) {
		req.Header.Set("X-Hold-Token", "tok-abc")
	})

	assert.Equal(t, "rl:user:guest:tok-abc", buildRateKey(cfg, c))
}

func TestBuildRateKey_AnonymousFallsBackToAnon(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	c := rateCtx(t, nil)

	assert.Equal(t, "rl:user:anon:route:POST /v1/slots/:id/claim", buildRateKey(cfg, c))
}
