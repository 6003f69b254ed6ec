package stream

import (
	"context"
	"sort"
	"sync"

	"deskstream/internal/types"
)

// Registry tracks live sessions so a server can report on them and wait for
// them during shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	changed  chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		changed:  make(chan struct{}),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.id]; !ok {
		return
	}
	delete(r.sessions, s.id)
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot lists the tracked sessions, oldest first.
func (r *Registry) Snapshot() []types.SessionInfo {
	r.mu.Lock()
	infos := make([]types.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// AbortAll force-closes every tracked connection and reports how many there
// were.
func (r *Registry) AbortAll() int {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Abort()
	}
	return len(sessions)
}

// Wait blocks until no sessions are tracked or ctx is done. It reports
// whether the registry drained.
func (r *Registry) Wait(ctx context.Context) bool {
	for {
		r.mu.Lock()
		if len(r.sessions) == 0 {
			r.mu.Unlock()
			return true
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}
