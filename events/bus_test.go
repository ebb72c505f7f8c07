package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	kind EventType
	at   time.Time
}

func (e *testEvent) Timestamp() time.Time { return e.at }
func (e *testEvent) Type() EventType      { return e.kind }

func TestDispatcher_DeliversByType(t *testing.T) {
	d := NewDispatcher(nil)

	var approvals, all int
	d.Subscribe(EventApprovalRequested, func(Event) { approvals++ })
	d.Subscribe(AllEvents, func(Event) { all++ })

	d.Publish(&testEvent{kind: EventApprovalRequested, at: time.Now()})
	d.Publish(&testEvent{kind: EventBreakpointHit, at: time.Now()})

	assert.Equal(t, 1, approvals)
	assert.Equal(t, 2, all)
}

func TestDispatcher_PanickingHandlerIsSwallowed(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	d := NewDispatcher(zap.New(core))

	var delivered bool
	d.Subscribe(EventStateChanged, func(Event) { panic("observer broke") })
	d.Subscribe(EventStateChanged, func(Event) { delivered = true })

	require.NotPanics(t, func() {
		d.Publish(&testEvent{kind: EventStateChanged, at: time.Now()})
	})
	assert.True(t, delivered)
	assert.Equal(t, 1, logs.FilterMessage("event handler panicked").Len())
}

func TestDispatcher_UnsubscribeAndStop(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var calls int
	id := d.Subscribe(EventPaused, func(Event) { calls++ })
	d.Publish(&testEvent{kind: EventPaused})
	d.Unsubscribe(id)
	d.Publish(&testEvent{kind: EventPaused})
	assert.Equal(t, 1, calls)

	d.Subscribe(EventPaused, func(Event) { calls++ })
	d.Stop()
	d.Publish(&testEvent{kind: EventPaused})
	assert.Equal(t, 1, calls)

	// nil bus and nil event are ignored
	Publish(nil, &testEvent{kind: EventPaused})
	d.Publish(nil)
}

func TestDispatcher_ConcurrentSubscribePublish(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(zap.NewNop())

	const goroutines = 20
	var wg sync.WaitGroup
	var received atomic.Int64
	ids := make(chan string, goroutines*20)

	wg.Add(goroutines * 3)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				ids <- d.Subscribe(EventResumed, func(Event) { received.Add(1) })
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				select {
				case id := <-ids:
					d.Unsubscribe(id)
				default:
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				d.Publish(&testEvent{kind: EventResumed, at: time.Now()})
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, received.Load(), int64(0))
}
