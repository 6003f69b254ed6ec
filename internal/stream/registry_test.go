package stream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	return NewSession(server, newTestConfig(&recorder{})), client
}

func TestRegistry_AddRemove(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a, _ := newIdleSession(t)
	b, _ := newIdleSession(t)

	r.Add(a)
	r.Add(b)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Snapshot(), 2)

	r.Remove(a)
	r.Remove(a)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, b.ID(), r.Snapshot()[0].ID)
}

func TestRegistry_WaitReturnsWhenDrained(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s, _ := newIdleSession(t)
	r.Add(s)

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Remove(s)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, r.Wait(ctx))
}

func TestRegistry_WaitTimesOut(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	s, _ := newIdleSession(t)
	r.Add(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, r.Wait(ctx))
}

func TestRegistry_AbortAllEndsRunningSessions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cfg := newTestConfig(&recorder{})
	cfg.ReadTimeout = 0

	var sessions []*Session
	for i := 0; i < 3; i++ {
		server, client := net.Pipe()
		t.Cleanup(func() { _ = client.Close() })
		s := NewSession(server, cfg)
		r.Add(s)
		sessions = append(sessions, s)
		go func() {
			defer r.Remove(s)
			s.Run(context.Background())
		}()
	}

	assert.Equal(t, 3, r.AbortAll())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, r.Wait(ctx))
	for _, s := range sessions {
		assert.Equal(t, StateClosed, s.State())
	}
}
