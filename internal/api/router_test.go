package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/regrada-identity/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRedis struct {
	counts map[string]int64
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func newTestOptions() Options {
	provider := auth.NewMockProvider(zerolog.Nop(), "")
	return Options{
		Identity:         auth.NewService(provider, auth.ServiceConfig{ClientID: "client_id", UserPoolID: "user_pool_id"}, zerolog.Nop()),
		Provider:         "mock",
		Logger:           zerolog.Nop(),
		Registry:         prometheus.NewRegistry(),
		GinMode:          gin.TestMode,
		CORSAllowOrigins: []string{"http://localhost:3000"},
	}
}

func call(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := NewRouter(newTestOptions())

	w := call(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)

	w = call(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `identity_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestRouterAdminRoutes(t *testing.T) {
	t.Run("not mounted without a token", func(t *testing.T) {
		r := NewRouter(newTestOptions())

		w := call(r, http.MethodGet, "/v1/admin/users/john", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("guarded by the admin token", func(t *testing.T) {
		opts := newTestOptions()
		opts.AdminAPIToken = "s3cret"
		r := NewRouter(opts)

		w := call(r, http.MethodPost, "/v1/auth/signup", `{"username":"john","password":"test123"}`, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		w = call(r, http.MethodGet, "/v1/admin/users/john", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = call(r, http.MethodGet, "/v1/admin/users/john", "", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = call(r, http.MethodGet, "/v1/admin/users/john", "", map[string]string{"Authorization": "Bearer s3cret"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_status":"UNCONFIRMED"`)
	})
}

func TestRouterMeRequiresToken(t *testing.T) {
	r := NewRouter(newTestOptions())

	w := call(r, http.MethodGet, "/v1/auth/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"UNAUTHORIZED"`)
}

func TestRouterRateLimitsAuthRoutes(t *testing.T) {
	opts := newTestOptions()
	opts.Redis = &fakeRedis{counts: map[string]int64{}}
	opts.RateLimitRPM = 2
	r := NewRouter(opts)

	body := `{"username":"nobody","password":"test123"}`
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/v1/auth/signin", body, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/v1/auth/signin", body, nil).Code)

	w := call(r, http.MethodPost, "/v1/auth/signin", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"RATE_LIMIT_EXCEEDED"`)

	// health is outside the limited group
	w = call(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"up"`)
}

func TestRouterCORSPreflight(t *testing.T) {
	r := NewRouter(newTestOptions())

	w := call(r, http.MethodOptions, "/v1/auth/signin", "", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterServesAPIDocs(t *testing.T) {
	r := NewRouter(newTestOptions())

	w := call(r, http.MethodGet, "/docs/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title": "Regrada Identity API"`)
	for _, path := range []string{
		"/health",
		"/v1/auth/signup",
		"/v1/auth/confirm",
		"/v1/auth/signin",
		"/v1/auth/signout",
		"/v1/auth/password/forgot",
		"/v1/auth/password/confirm",
		"/v1/auth/me",
		"/v1/auth/me/attributes",
		"/v1/auth/me/password",
		"/v1/admin/users/{username}",
	} {
		assert.Contains(t, w.Body.String(), `"`+path+`"`)
	}

	w = call(r, http.MethodGet, "/docs/index.html", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
