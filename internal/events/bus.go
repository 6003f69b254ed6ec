package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"deskstream/internal/constants"
)

// Sink receives events from a Bus on the bus goroutine.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Bus buffers events and delivers them to every sink in order. When the
// buffer is full new events are dropped and counted.
type Bus struct {
	mu      sync.RWMutex
	sinks   []Sink
	queue   chan Event
	dropped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = constants.EventBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		queue:  make(chan Event, size),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) Subscribe(s Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

func (b *Bus) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.queue <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case ev := <-b.queue:
			b.deliver(ev)
		case <-b.ctx.Done():
			// Flush whatever is already queued.
			for {
				select {
				case ev := <-b.queue:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(context.Background(), ev); err != nil {
			log.Printf("⚠️  Event sink error (%s): %v", ev.Type, err)
		}
	}
}

// Close stops accepting events, flushes the queue and waits for delivery.
func (b *Bus) Close() error {
	b.once.Do(func() {
		b.closed.Store(true)
		b.cancel()
	})
	<-b.done
	return nil
}
