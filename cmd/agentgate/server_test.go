package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/config"
	"github.com/BaSui01/agentgate/session"
	"github.com/BaSui01/agentgate/testutil/fixtures"
	"github.com/BaSui01/agentgate/testutil/mocks"
	"github.com/BaSui01/agentgate/types"
)

func testConfig(modify ...func(*config.Config)) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0
	cfg.Approval.DefaultTimeout = 5 * time.Second
	for _, m := range modify {
		m(cfg)
	}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, http.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := NewServer(ctx, cfg, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
	})
	return srv, srv.Routes(ctx)
}

type apiResult struct {
	Code int
	Body []byte
}

func call(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) apiResult {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return apiResult{Code: w.Code, Body: w.Body.Bytes()}
}

func dataOf[T any](t *testing.T, res apiResult) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body, &env), string(res.Body))
	return env.Data
}

// waitPending 等待出现一个待审批请求并返回其 ID
func waitPending(t *testing.T, h http.Handler, headers map[string]string) string {
	t.Helper()
	var id string
	require.Eventually(t, func() bool {
		pending := dataOf[[]map[string]any](t, call(t, h, http.MethodGet, "/api/v1/approvals", nil, headers))
		if len(pending) == 0 {
			return false
		}
		id, _ = pending[0]["id"].(string)
		return id != ""
	}, 3*time.Second, 10*time.Millisecond)
	return id
}

type runResult struct {
	out session.Outcome
	err error
}

func runGuarded(srv *Server, tc session.ToolCall, exec *mocks.Executor) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		out, err := srv.Session().Guard().Run(context.Background(), tc, exec.Execute)
		done <- runResult{out: out, err: err}
	}()
	return done
}

func TestServer_HealthAndVersion(t *testing.T) {
	_, h := newTestServer(t, testConfig())

	res := call(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = call(t, h, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = call(t, h, http.MethodGet, "/version", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), Version)
}

func TestServer_ApproveToolCallOverHTTP(t *testing.T) {
	srv, h := newTestServer(t, testConfig())
	exec := mocks.NewExecutor().WithResult("deleted")

	done := runGuarded(srv, fixtures.DeleteFile("/tmp/build"), exec)
	id := waitPending(t, h, nil)

	res := call(t, h, http.MethodPost, "/api/v1/approvals/"+id+"/respond", api.RespondRequest{
		Approved:       true,
		ModifiedValues: map[string]any{"path": "/tmp/build/cache"},
	}, nil)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "deleted", r.out.Result)
		assert.Equal(t, "/tmp/build/cache", r.out.Call.Arguments["path"])
	case <-time.After(3 * time.Second):
		t.Fatal("guarded call did not finish")
	}

	calls := exec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/tmp/build/cache", calls[0].Arguments["path"])

	snaps := dataOf[[]map[string]any](t, call(t, h, http.MethodGet, "/api/v1/history", nil, nil))
	assert.Len(t, snaps, 1)
}

func TestServer_RollbackRestoresConversation(t *testing.T) {
	srv, h := newTestServer(t, testConfig(func(c *config.Config) { c.Approval.AutoApprove = true }))
	guard := srv.Session().Guard()
	exec := mocks.NewExecutor()

	first, err := guard.Run(context.Background(), fixtures.ReadFile("/etc/hosts"), exec.Execute)
	require.NoError(t, err)
	_, err = guard.Run(context.Background(), fixtures.ReadFile("/etc/passwd"), exec.Execute)
	require.NoError(t, err)
	require.Len(t, guard.Messages(), 4)

	res := call(t, h, http.MethodPost, "/api/v1/history/rollback", api.RollbackRequest{SnapshotID: first.Snapshot.ID}, nil)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	assert.Len(t, guard.Messages(), 2)
	assert.Equal(t, 1, srv.Session().History.Len())
}

func TestServer_DeniedCallOverHTTP(t *testing.T) {
	srv, h := newTestServer(t, testConfig())
	exec := mocks.NewExecutor()

	done := runGuarded(srv, fixtures.SendEmail("ops@example.com"), exec)
	id := waitPending(t, h, nil)

	res := call(t, h, http.MethodPost, "/api/v1/approvals/"+id+"/respond", api.RespondRequest{Approved: false, Reason: "wrong recipient"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	r := <-done
	require.Error(t, r.err)
	assert.True(t, errors.Is(r.err, session.ErrDenied))
	assert.Empty(t, exec.Calls())
}

func TestServer_APIKeyRequired(t *testing.T) {
	_, h := newTestServer(t, testConfig(func(c *config.Config) { c.Server.APIKeys = []string{"ops-key"} }))

	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/v1/approvals", nil, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/api/v1/approvals", nil, map[string]string{"X-API-Key": "ops-key"}).Code)
}

func TestServer_JWTResponderRecorded(t *testing.T) {
	srv, h := newTestServer(t, testConfig(func(c *config.Config) { c.Auth.JWTSecret = "responder-secret" }))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "reviewer-7",
		"iss":     "agentgate",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("responder-secret"))
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + token}

	done := runGuarded(srv, fixtures.SendEmail("team@example.com"), mocks.NewExecutor())
	id := waitPending(t, h, auth)

	res := call(t, h, http.MethodPost, "/api/v1/approvals/"+id+"/respond", api.RespondRequest{Approved: true}, auth)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "reviewer-7", r.out.Request.Responder())

	history := dataOf[[]map[string]any](t, call(t, h, http.MethodGet, "/api/v1/approvals/history", nil, auth))
	require.Len(t, history, 1)
	assert.Equal(t, "reviewer-7", history[0]["responder"])
}

func TestServer_RedisRememberBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	srv, h := newTestServer(t, testConfig(func(c *config.Config) {
		c.Approval.RememberBackend = "redis"
		c.Redis.Addr = mr.Addr()
	}))

	done := runGuarded(srv, fixtures.SendEmail("ops@example.com"), mocks.NewExecutor())
	id := waitPending(t, h, nil)
	res := call(t, h, http.MethodPost, "/api/v1/approvals/"+id+"/respond", api.RespondRequest{Approved: true, Remember: true}, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, (<-done).err)

	assert.True(t, mr.Exists("agentgate:remember:decisions"))
	decisions := dataOf[[]map[string]any](t, call(t, h, http.MethodGet, "/api/v1/approvals/decisions", nil, nil))
	assert.Len(t, decisions, 1)

	// 记住的决定直接放行
	out, err := srv.Session().Guard().Run(context.Background(), fixtures.SendEmail("ops@example.com"), mocks.NewExecutor().Execute)
	require.NoError(t, err)
	assert.Nil(t, out.Request)

	res = call(t, h, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestServer_RedisUnavailable(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Approval.RememberBackend = "redis"
		c.Redis.Addr = "127.0.0.1:1"
	})
	_, err := NewServer(context.Background(), cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestServer_FeedbackPersistsAcrossRestarts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agentgate.db")
	cfg := testConfig(func(c *config.Config) {
		c.Feedback.Persist = true
		c.Database.Driver = "sqlite"
		c.Database.Name = dbPath
	})

	srv, err := NewServer(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	h := srv.Routes(context.Background())

	res := call(t, h, http.MethodPost, "/api/v1/feedback", api.FeedbackRequest{Rating: 4, ToolName: "read_file", Tags: []string{"fast"}}, nil)
	require.Equal(t, http.StatusCreated, res.Code, string(res.Body))
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/ready", nil, nil).Code)
	require.NoError(t, srv.Close())

	_, h = newTestServer(t, cfg)
	list := dataOf[struct {
		Entries []map[string]any `json:"entries"`
	}](t, call(t, h, http.MethodGet, "/api/v1/feedback?tool=read_file", nil, nil))
	require.Len(t, list.Entries, 1)
	assert.EqualValues(t, 4, list.Entries[0]["rating"])
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(), nil, zap.NewNop())
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_CloseCancelsPending(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(), nil, zap.NewNop())
	require.NoError(t, err)
	h := srv.Routes(context.Background())

	done := runGuarded(srv, fixtures.DeleteFile("/var/data"), mocks.NewExecutor())
	waitPending(t, h, nil)
	require.NoError(t, srv.Close())

	r := <-done
	var typed *types.Error
	require.ErrorAs(t, r.err, &typed)
	assert.Equal(t, types.ErrActionDenied, typed.Code)
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t, []string{"console.example.com", "localhost:3000", "*.internal"},
		originHosts([]string{"https://console.example.com", "http://localhost:3000", "*.internal"}))
}
