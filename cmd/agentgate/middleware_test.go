package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/config"
	"github.com/BaSui01/agentgate/internal/metrics"
	"github.com/BaSui01/agentgate/types"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func serveMiddleware(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func TestSecurityHeaders(t *testing.T) {
	w := serveMiddleware(SecurityHeaders()(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serveMiddleware(Chain(okHandler, mark("outer"), mark("inner")), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = types.RequestID(r.Context())
	}))

	w := serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-from-client")
	w = serveMiddleware(h, r)
	assert.Equal(t, "req-from-client", seen)
	assert.Equal(t, "req-from-client", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(types.ErrInternalError), errorCode(t, w))
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth([]string{"key-1"}, []string{"/health"}, zap.NewNop())(okHandler)

	w := serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(types.ErrUnauthorized), errorCode(t, w))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	r.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serveMiddleware(h, r).Code)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	r.Header.Set("X-API-Key", "key-1")
	assert.Equal(t, http.StatusOK, serveMiddleware(h, r).Code)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "s3cret", JWTIssuer: "agentgate"}
	var responder string
	h := JWTAuth(cfg, []string{"/health"}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder, _ = types.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantUser string
	}{
		{
			name:     "user_id claim",
			header:   "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"user_id": "reviewer-7", "iss": "agentgate", "exp": exp}),
			wantCode: http.StatusOK,
			wantUser: "reviewer-7",
		},
		{
			name:     "subject fallback",
			header:   "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "oncall", "iss": "agentgate", "exp": exp}),
			wantCode: http.StatusOK,
			wantUser: "oncall",
		},
		{
			name:     "wrong secret",
			header:   "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "x", "iss": "agentgate", "exp": exp}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong issuer",
			header:   "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "x", "iss": "someone-else", "exp": exp}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired",
			header:   "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"sub": "x", "iss": "agentgate", "exp": time.Now().Add(-time.Minute).Unix()}),
			wantCode: http.StatusUnauthorized,
		},
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder = ""
			r := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/x/respond", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := serveMiddleware(h, r)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, responder)
		})
	}

	w := serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimiter(ctx, 1, 1, zap.NewNop())(okHandler)

	newReq := func(addr, user string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
		r.RemoteAddr = addr
		if user != "" {
			r = r.WithContext(types.WithUserID(r.Context(), user))
		}
		return r
	}

	assert.Equal(t, http.StatusOK, serveMiddleware(h, newReq("10.0.0.1:1234", "")).Code)
	w := serveMiddleware(h, newReq("10.0.0.1:5678", ""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, string(types.ErrRateLimited), errorCode(t, w))

	// 其他 IP 与已认证用户各自计数
	assert.Equal(t, http.StatusOK, serveMiddleware(h, newReq("10.0.0.2:1234", "")).Code)
	assert.Equal(t, http.StatusOK, serveMiddleware(h, newReq("10.0.0.1:1234", "alice")).Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://console.example.com"})(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	r.Header.Set("Origin", "https://console.example.com")
	w := serveMiddleware(h, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/v1/approvals", nil)
	r.Header.Set("Origin", "https://console.example.com")
	assert.Equal(t, http.StatusNoContent, serveMiddleware(h, r).Code)

	r = httptest.NewRequest(http.MethodOptions, "/api/v1/approvals", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = serveMiddleware(h, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/health":                  "/health",
		"/api/v1/approvals":        "/api/v1/approvals",
		"/api/v1/workflows/deploy": "/api/v1/workflows/deploy",
		"/api/v1/breakpoints/42":   "/api/v1/breakpoints/:id",
		"/api/v1/history/0b8f7a2c-1d3e-4f5a-9b6c-7d8e9f0a1b2c":           "/api/v1/history/:id",
		"/api/v1/approvals/0b8f7a2c-1d3e-4f5a-9b6c-7d8e9f0a1b2c/respond": "/api/v1/approvals/:id/respond",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	collector := metrics.NewCollector("agentgate_mw_test", zap.NewNop())
	h := MetricsMiddleware(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := serveMiddleware(h, httptest.NewRequest(http.MethodPost, "/api/v1/breakpoints/7/trigger", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "agentgate_mw_test_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["path"] == "/api/v1/breakpoints/:id/trigger" {
				found = true
				assert.Equal(t, float64(1), m.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found, "request counter not recorded")
}

func TestOTelTracing_PassesThrough(t *testing.T) {
	h := OTelTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := serveMiddleware(h, httptest.NewRequest(http.MethodGet, "/api/v1/control/status", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
