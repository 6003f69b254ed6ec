// Package capture produces the JPEG frames a stream serves. Sources are pull
// based: a session asks for the next frame when its timer fires.
package capture

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Next once a source has been closed.
var ErrClosed = errors.New("frame source closed")

// Source yields an endless sequence of encoded JPEG frames. Implementations
// must be safe for concurrent use; the returned slice is shared and must not
// be modified.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// StaticSource serves the same frame forever.
type StaticSource struct {
	frame  []byte
	mu     sync.RWMutex
	closed bool
}

func NewStaticSource(frame []byte) *StaticSource {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	return &StaticSource{frame: cp}
}

func (s *StaticSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.frame, nil
}

func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
