package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/testutil"
)

func TestControlHandler_PauseResumeStatus(t *testing.T) {
	s := testutil.NewSession(t)
	h := NewControlHandler(s.Breakpoints, s.Approvals, s.History, zap.NewNop())
	_, err := s.Breakpoints.Add(breakpoint.OnError())
	require.NoError(t, err)

	w := do(t, http.HandlerFunc(h.HandlePause), http.MethodPost, "/api/v1/control/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[api.ControlStatus](t, w).Data.Paused)
	assert.True(t, s.Breakpoints.IsPaused())

	w = do(t, http.HandlerFunc(h.HandleStatus), http.MethodGet, "/api/v1/control/status", nil)
	status := decode[api.ControlStatus](t, w).Data
	assert.True(t, status.Paused)
	assert.Equal(t, 1, status.Breakpoints)
	assert.Zero(t, status.Pending)

	w = do(t, http.HandlerFunc(h.HandleResume), http.MethodPost, "/api/v1/control/resume", nil)
	assert.False(t, decode[api.ControlStatus](t, w).Data.Paused)
	assert.False(t, s.Breakpoints.IsPaused())
}
