// Package stream runs one viewer connection from its request line to the
// last frame.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"deskstream/internal/capture"
	"deskstream/internal/constants"
	"deskstream/internal/events"
	"deskstream/internal/mjpeg"
	"deskstream/internal/security"
	"deskstream/internal/types"
)

type State int32

const (
	StateHandshaking State = iota
	StateAuthenticating
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Authenticator decides whether a credential taken from a request line is
// the live one.
type Authenticator interface {
	Validate(candidate string) bool
}

// Guard throttles repeated authentication failures per remote IP.
type Guard interface {
	Check(ip string) bool
	RecordFailure(ip string) int
	RecordSuccess(ip string)
}

// Counters aggregates activity across sessions.
type Counters struct {
	Sessions     atomic.Int64
	AuthFailures atomic.Int64
	Frames       atomic.Int64
	Bytes        atomic.Int64
}

// Config is shared by every session started by one server generation.
type Config struct {
	Auth        Authenticator
	Framer      *mjpeg.Framer
	Source      capture.Source
	FrameRate   types.FrameRate
	ReadTimeout time.Duration
	SendTimeout time.Duration

	// Optional.
	Guard    Guard
	Events   events.Publisher
	Counters *Counters
}

// Session moves strictly forward through Handshaking, Authenticating,
// Streaming, Closing and Closed. Any state can end in Closed.
type Session struct {
	id        string
	conn      net.Conn
	remote    string
	ip        string
	startedAt time.Time
	cfg       *Config

	state  atomic.Int32
	frames atomic.Int64
	bytes  atomic.Int64

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(conn net.Conn, cfg *Config) *Session {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Session{
		id:        uuid.NewString(),
		conn:      conn,
		remote:    remote,
		ip:        security.RemoteIP(conn.RemoteAddr()),
		startedAt: time.Now(),
		cfg:       cfg,
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) RemoteAddr() string { return s.remote }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) FramesSent() int64 { return s.frames.Load() }

func (s *Session) BytesSent() int64 { return s.bytes.Load() }

// Done is closed once Run has returned and the connection is shut.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is the transport or source error that ended the session, if any.
// Authentication failures and cancellation are not errors.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Info() types.SessionInfo {
	return types.SessionInfo{
		ID:         s.id,
		RemoteAddr: s.remote,
		State:      s.State().String(),
		StartedAt:  s.startedAt,
		Duration:   time.Since(s.startedAt).Round(time.Millisecond),
		FramesSent: s.frames.Load(),
		BytesSent:  s.bytes.Load(),
	}
}

// Run drives the session to completion. Cancelling ctx is observed before
// and after every frame wait; a frame write already in progress is allowed
// to finish.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.finish()
	defer func() {
		if r := recover(); r != nil {
			s.setErr(fmt.Errorf("session panic: %v", r))
			log.Printf("🔥 PANIC RECOVERED in session %s: %v\nStack Trace:\n%s", s.id, r, string(debug.Stack()))
		}
	}()

	if c := s.cfg.Counters; c != nil {
		c.Sessions.Add(1)
	}
	s.publish(events.SessionOpened, "")

	line, ok := s.handshake(ctx)
	if !ok {
		return
	}
	if !s.authenticate(line) {
		return
	}
	s.stream(ctx)
}

func (s *Session) handshake(ctx context.Context) (string, bool) {
	s.setState(StateHandshaking)

	if s.cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	br := bufio.NewReaderSize(s.conn, constants.MaxRequestLine)
	line, err := readRequestLine(br)
	if err != nil {
		if !errors.Is(err, io.EOF) && ctx.Err() == nil {
			s.setErr(err)
		}
		return "", false
	}
	if line == "" || ctx.Err() != nil {
		return "", false
	}

	_ = s.conn.SetReadDeadline(time.Time{})
	return line, true
}

func (s *Session) authenticate(line string) bool {
	s.setState(StateAuthenticating)

	g := s.cfg.Guard
	if g != nil && !g.Check(s.ip) {
		s.publish(events.AuthBlocked, constants.MsgTooManyAttempts)
		s.reject(s.cfg.Framer.WriteTooManyRequests)
		return false
	}

	key, _ := ParseAuthKey(line)
	if !s.cfg.Auth.Validate(key) {
		details := constants.MsgUnauthorized
		if g != nil {
			details = fmt.Sprintf("%s (attempt %d)", details, g.RecordFailure(s.ip))
		}
		if c := s.cfg.Counters; c != nil {
			c.AuthFailures.Add(1)
		}
		log.Printf("🔒 Rejected %s: %q", s.ip, security.SanitizeInput(security.RedactAuth(line)))
		s.publish(events.AuthFailed, details)
		s.reject(s.cfg.Framer.WriteUnauthorized)
		return false
	}

	if g != nil {
		g.RecordSuccess(s.ip)
	}
	return true
}

func (s *Session) reject(write func(io.Writer) error) {
	if err := s.withSendTimeout(func() error { return write(s.conn) }); err != nil {
		s.setErr(err)
	}
}

func (s *Session) stream(ctx context.Context) {
	s.setState(StateStreaming)

	interval := s.cfg.FrameRate.Interval()
	if interval <= 0 {
		s.setErr(types.ErrInvalidFrameRate)
		return
	}

	if err := s.withSendTimeout(func() error { return s.cfg.Framer.WriteStreamHeader(s.conn) }); err != nil {
		s.setErr(err)
		return
	}
	s.publish(events.SessionStreaming, s.cfg.FrameRate.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		frame, err := s.cfg.Source.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.setErr(fmt.Errorf("frame source: %w", err))
			}
			return
		}

		var n int64
		err = s.withSendTimeout(func() (werr error) {
			n, werr = s.cfg.Framer.WritePart(s.conn, frame)
			return werr
		})
		s.bytes.Add(n)
		if c := s.cfg.Counters; c != nil {
			c.Bytes.Add(n)
		}
		if err != nil {
			s.setErr(err)
			return
		}

		s.frames.Add(1)
		if c := s.cfg.Counters; c != nil {
			c.Frames.Add(1)
		}
	}
}

func (s *Session) withSendTimeout(fn func() error) error {
	if s.cfg.SendTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.SendTimeout))
	}
	return fn()
}

func (s *Session) finish() {
	s.setState(StateClosing)
	s.shutdown()
	s.setState(StateClosed)

	ev := events.New(events.SessionClosed, s.id, s.remote, "")
	ev.FramesSent = s.frames.Load()
	ev.BytesSent = s.bytes.Load()
	if err := s.Err(); err != nil {
		ev.Error = err.Error()
	}
	s.emit(ev)
}

// shutdown closes both directions, then the socket. Errors from a peer that
// already went away are ignored.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		if c, ok := s.conn.(interface{ CloseWrite() error }); ok {
			_ = c.CloseWrite()
		}
		if c, ok := s.conn.(interface{ CloseRead() error }); ok {
			_ = c.CloseRead()
		}
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("⚠️  Session %s close: %v", s.id, err)
		}
	})
}

// Abort closes the connection immediately, unblocking any pending read or
// write. Run then unwinds on its own.
func (s *Session) Abort() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Session) publish(t events.Type, details string) {
	s.emit(events.New(t, s.id, s.remote, details))
}

func (s *Session) emit(ev events.Event) {
	if s.cfg.Events != nil {
		s.cfg.Events.Publish(ev)
	}
}
