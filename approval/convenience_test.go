package approval

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/events"
)

// respondWhenRequested answers every new request from a separate goroutine,
// the way an HTTP responder would.
func respondWhenRequested(t *testing.T, e *Engine, bus events.Bus, approve bool) chan *RequestedEvent {
	t.Helper()
	seen := make(chan *RequestedEvent, 8)
	bus.Subscribe(events.EventApprovalRequested, func(ev events.Event) {
		re := ev.(*RequestedEvent)
		seen <- re
		go e.Respond(context.Background(), re.RequestID, approve, RespondOptions{})
	})
	return seen
}

func TestEngine_ConvenienceWrappers(t *testing.T) {
	bus := events.NewDispatcher(zap.NewNop())
	e := NewEngine(EngineConfig{DefaultTimeout: 5 * time.Second}, bus, zap.NewNop())
	seen := respondWhenRequested(t, e, bus, true)
	ctx := context.Background()

	assert.True(t, e.RequestPermission(ctx, "camera", "to take a screenshot"))
	ev := <-seen
	assert.Equal(t, TypePermission, ev.ApprovalType)
	assert.Equal(t, "Permission: camera", ev.Title)

	assert.True(t, e.ConfirmAction(ctx, "empty trash", ""))
	ev = <-seen
	assert.Equal(t, "Confirm: empty trash", ev.Title)
	assert.Equal(t, "Are you sure you want to empty trash?", ev.Description)

	assert.True(t, e.ConfirmSensitive(ctx, "rotate keys", "prod vault", "Clients must reconnect."))
	ev = <-seen
	assert.Equal(t, "Sensitive: rotate keys", ev.Title)
	assert.Equal(t, "This will rotate keys on prod vault. Clients must reconnect.", ev.Description)

	assert.True(t, e.ConfirmFileWrite(ctx, "/etc/hosts", "overwrite"))
	ev = <-seen
	assert.Equal(t, "File: overwrite", ev.Title)
	assert.Equal(t, TypeFileWrite, ev.ApprovalType)
}

func TestEngine_ConfirmExecutionTruncatesDisplay(t *testing.T) {
	bus := events.NewDispatcher(zap.NewNop())
	e := NewEngine(EngineConfig{DefaultTimeout: 5 * time.Second}, bus, zap.NewNop())
	seen := respondWhenRequested(t, e, bus, false)

	tests := []struct {
		name     string
		code     string
		wantTail string
	}{
		{"ascii over limit", strings.Repeat("x", 250), strings.Repeat("x", 200) + "..."},
		{"multibyte over limit", "x" + strings.Repeat("é", 250), "x" + strings.Repeat("é", 199) + "..."},
		{"multibyte under limit", "x" + strings.Repeat("é", 150), "x" + strings.Repeat("é", 150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, e.ConfirmExecution(context.Background(), "python", tt.code))

			ev := <-seen
			assert.Equal(t, "Execute python", ev.Title)
			assert.True(t, utf8.ValidString(ev.Description))
			assert.True(t, strings.HasSuffix(ev.Description, "\n\n"+tt.wantTail), ev.Description)
			assert.Equal(t, tt.code, ev.Details["code"])
		})
	}
}

func TestEngine_ConvenienceTimeoutIsDenial(t *testing.T) {
	e := NewEngine(EngineConfig{DefaultTimeout: 30 * time.Millisecond}, nil, zap.NewNop())
	require.False(t, e.ConfirmAction(context.Background(), "format disk", ""))
}
