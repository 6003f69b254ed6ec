package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Deliver(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func TestBus_DeliversInOrderToEverySink(t *testing.T) {
	t.Parallel()

	bus := NewBus(16)
	a, b := &recordingSink{}, &recordingSink{}
	bus.Subscribe(a)
	bus.Subscribe(b)
	bus.Subscribe(nil)

	bus.Publish(New(SessionOpened, "s1", "127.0.0.1:1", ""))
	bus.Publish(New(SessionStreaming, "s1", "127.0.0.1:1", ""))
	bus.Publish(New(SessionClosed, "s1", "127.0.0.1:1", ""))
	require.NoError(t, bus.Close())

	want := []Type{SessionOpened, SessionStreaming, SessionClosed}
	assert.Equal(t, want, a.types())
	assert.Equal(t, want, b.types())
}

func TestBus_DropsWhenFullInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	bus := NewBus(1)
	bus.Subscribe(SinkFunc(func(context.Context, Event) error {
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(New(SessionOpened, "", "", ""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow sink")
	}
	close(release)
	require.NoError(t, bus.Close())
	assert.Positive(t, bus.Dropped())
}

func TestBus_SinkErrorsDoNotStopDelivery(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	bus.Subscribe(SinkFunc(func(context.Context, Event) error { return errors.New("down") }))
	rec := &recordingSink{}
	bus.Subscribe(rec)

	bus.Publish(New(ServerStarted, "", "", ""))
	require.NoError(t, bus.Close())
	assert.Equal(t, []Type{ServerStarted}, rec.types())
}

func TestBus_PublishAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	bus := NewBus(4)
	rec := &recordingSink{}
	bus.Subscribe(rec)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	bus.Publish(New(ServerStopped, "", "", ""))
	assert.Empty(t, rec.types())
}

func TestNew_StampsIDAndTime(t *testing.T) {
	t.Parallel()

	ev := New(AuthFailed, "s", "10.0.0.1:5", "bad key")
	assert.Len(t, ev.ID, 36)
	assert.WithinDuration(t, time.Now(), ev.Timestamp, time.Second)
	assert.Equal(t, "bad key", ev.Details)
	assert.NotPanics(t, func() { Discard.Publish(ev) })
}
