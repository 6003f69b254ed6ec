// Package server owns the listening socket and the lifecycle of every viewer
// session accepted on it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"deskstream/internal/auth"
	"deskstream/internal/capture"
	"deskstream/internal/constants"
	"deskstream/internal/events"
	"deskstream/internal/mjpeg"
	"deskstream/internal/security"
	"deskstream/internal/stream"
	"deskstream/internal/types"
	"deskstream/internal/utils"
)

var ErrDisposed = errors.New("server disposed")

// SourceFactory builds the frame source for one run of the server.
type SourceFactory func(cfg types.StreamConfig) (capture.Source, error)

// Config holds the settings fixed for the lifetime of a Server. Zero values
// fall back to the defaults in internal/constants.
type Config struct {
	NewSource SourceFactory
	Boundary  string
	Events    events.Publisher
	// Listen opens the viewer listener; nil uses a net.ListenConfig.
	Listen func(ctx context.Context, network, address string) (net.Listener, error)

	MaxClients      int
	MaxConnPerIP    int
	MaxAuthAttempts int
	BlockDuration   time.Duration

	ReadTimeout     time.Duration
	SendTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Events == nil {
		c.Events = events.Discard
	}
	if c.Listen == nil {
		var lc net.ListenConfig
		c.Listen = lc.Listen
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = constants.ReadRequestTimeout
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = constants.SendTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = constants.ShutdownTimeout
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = constants.BlockDuration
	}
}

// Server streams the desktop to every viewer that presents the current
// credential. Only one listener is ever active; Start on a running server
// replaces it.
type Server struct {
	cfg      Config
	gate     *auth.Gate
	framer   *mjpeg.Framer
	registry *stream.Registry
	counters stream.Counters
	limiter  *security.ConnectionLimiter
	brute    *security.BruteForceProtector
	slots    *semaphore.Weighted
	rejects  sync.WaitGroup

	// opMu serialises Start, Stop and Dispose.
	opMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	disposed   bool
	generation uint64
	listener   net.Listener
	cancel     context.CancelFunc
	acceptDone chan struct{}
	source     capture.Source
	stream     types.StreamConfig
	share      types.ShareInfo
}

func New(cfg Config) *Server {
	cfg.setDefaults()

	s := &Server{
		cfg:      cfg,
		gate:     auth.NewGate(),
		framer:   mjpeg.NewFramer(cfg.Boundary),
		registry: stream.NewRegistry(),
		limiter:  security.NewConnectionLimiter(cfg.MaxConnPerIP),
	}
	if cfg.MaxAuthAttempts > 0 {
		s.brute = security.NewBruteForceProtector(cfg.MaxAuthAttempts, cfg.BlockDuration)
	}
	if cfg.MaxClients > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.MaxClients))
	}
	return s
}

// Validate reports the first problem with sc, if any.
func Validate(sc types.StreamConfig) error {
	if sc.FrameRate.IsZero() {
		return fmt.Errorf("frame rate: %w", types.ErrInvalidFrameRate)
	}
	if !sc.Resolution.Valid() {
		return fmt.Errorf("resolution %d: %w", sc.Resolution, types.ErrUnknownResolution)
	}
	if err := security.ValidatePort(sc.Port); err != nil {
		return err
	}
	return security.ValidateBindAddress(sc.BindAddress)
}

// Start binds the listener, issues a fresh credential and begins accepting
// viewers. A server that is already running is stopped first, which
// invalidates the previous credential. The returned URL carries the new
// credential and the port actually bound.
func (s *Server) Start(ctx context.Context, sc types.StreamConfig) (string, error) {
	if err := Validate(sc); err != nil {
		return "", err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	disposed := s.disposed
	s.mu.RUnlock()
	if disposed {
		return "", ErrDisposed
	}

	s.stopLocked()

	if s.cfg.NewSource == nil {
		return "", errors.New("no frame source configured")
	}
	source, err := s.cfg.NewSource(sc)
	if err != nil {
		return "", fmt.Errorf("frame source: %w", err)
	}

	addr := net.JoinHostPort(sc.BindAddress, strconv.Itoa(sc.Port))
	ln, err := s.cfg.Listen(ctx, "tcp", addr)
	if err != nil {
		source.Close()
		return "", fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	key, err := s.gate.Issue()
	if err != nil {
		ln.Close()
		source.Close()
		return "", fmt.Errorf("failed to issue credential: %w", err)
	}
	if s.brute != nil {
		s.brute.Reset()
	}

	port := sc.Port
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	host := utils.DisplayHost(sc.BindAddress)
	shareURL := utils.ShareURL(host, port, key)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sessionCfg := &stream.Config{
		Auth:        s.gate,
		Framer:      s.framer,
		Source:      source,
		FrameRate:   sc.FrameRate,
		ReadTimeout: s.cfg.ReadTimeout,
		SendTimeout: s.cfg.SendTimeout,
		Events:      s.cfg.Events,
		Counters:    &s.counters,
	}
	if s.brute != nil {
		sessionCfg.Guard = s.brute
	}
	done := make(chan struct{})

	s.mu.Lock()
	s.running = true
	s.generation++
	gen := s.generation
	s.listener = ln
	s.cancel = cancel
	s.acceptDone = done
	s.source = source
	s.stream = sc
	s.share = types.ShareInfo{
		URL:         shareURL,
		Host:        host,
		Port:        port,
		Fingerprint: s.gate.Fingerprint(),
		StartedAt:   time.Now(),
	}
	s.mu.Unlock()

	go s.acceptLoop(runCtx, ln, sessionCfg, gen, done)

	details := fmt.Sprintf("%s:%d %s @ %s", host, port, sc.Resolution.Name(), sc.FrameRate)
	s.cfg.Events.Publish(events.New(events.ServerStarted, "", ln.Addr().String(), details))
	log.Printf("🚀 Streaming on %s (%s, %s)", ln.Addr(), sc.Resolution.Name(), sc.FrameRate)

	return shareURL, nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, cfg *stream.Config, gen uint64, done chan struct{}) {
	defer close(done)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if fatalAcceptError(err) {
				log.Printf("❌ Accept failed, listener stopped: %v", err)
				s.mu.Lock()
				if s.generation == gen {
					s.running = false
				}
				s.mu.Unlock()
				return
			}

			if delay == 0 {
				delay = constants.AcceptBackoffMin
			} else {
				delay *= 2
			}
			if delay > constants.AcceptBackoffMax {
				delay = constants.AcceptBackoffMax
			}
			log.Printf("⚠️  Accept error: %v; retrying in %v", err, delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}
		delay = 0
		s.handleConn(ctx, conn, cfg)
	}
}

// fatalAcceptError reports resource exhaustion, after which the accept loop
// gives up instead of retrying.
func fatalAcceptError(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM)
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, cfg *stream.Config) {
	ip := security.RemoteIP(conn.RemoteAddr())
	remote := conn.RemoteAddr().String()

	if !s.limiter.TryConnect(ip) {
		s.cfg.Events.Publish(events.New(events.SessionRejected, "", remote, "per-IP connection limit reached"))
		s.rejectAsync(ctx, conn, s.framer.WriteTooManyRequests)
		return
	}
	if s.slots != nil && !s.slots.TryAcquire(1) {
		s.limiter.Disconnect(ip)
		s.cfg.Events.Publish(events.New(events.SessionRejected, "", remote, constants.MsgServerFull))
		s.rejectAsync(ctx, conn, s.framer.WriteUnavailable)
		return
	}

	sess := stream.NewSession(conn, cfg)
	s.registry.Add(sess)

	go func() {
		defer func() {
			s.registry.Remove(sess)
			s.limiter.Disconnect(ip)
			if s.slots != nil {
				s.slots.Release(1)
			}
		}()
		sess.Run(ctx)
	}()
}

// rejectAsync runs reject in the background. The connection is closed when
// ctx is cancelled so Stop does not wait out the send timeout.
func (s *Server) rejectAsync(ctx context.Context, conn net.Conn, write func(io.Writer) error) {
	s.rejects.Add(1)
	go func() {
		defer s.rejects.Done()
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()
		s.reject(conn, write)
	}()
}

// reject answers a connection that will not get a session. The request is
// drained before closing so the response is not lost to a reset.
func (s *Server) reject(conn net.Conn, write func(io.Writer) error) {
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.SendTimeout))
	if err := write(conn); err != nil {
		return
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, constants.MaxRequestLine))
}

// Stop closes the listener and ends every session, waiting at most the
// shutdown timeout before force-closing connections that have not finished.
// Calling Stop on a stopped server does nothing.
func (s *Server) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopLocked()
}

func (s *Server) stopLocked() {
	s.mu.Lock()
	ln := s.listener
	if ln == nil {
		s.mu.Unlock()
		return
	}
	cancel, done, source := s.cancel, s.acceptDone, s.source
	s.running = false
	s.generation++
	s.listener = nil
	s.cancel = nil
	s.acceptDone = nil
	s.source = nil
	s.share = types.ShareInfo{}
	s.mu.Unlock()

	cancel()
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("⚠️  Listener close: %v", err)
	}

	ctx, cancelWait := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancelWait()

	select {
	case <-done:
		// The accept loop has exited, so no rejection can start now.
		s.rejects.Wait()
	case <-ctx.Done():
	}
	if !s.registry.Wait(ctx) {
		n := s.registry.AbortAll()
		log.Printf("⚠️  Forced %d viewer connection(s) closed after %v", n, s.cfg.ShutdownTimeout)

		grace, cancelGrace := context.WithTimeout(context.Background(), time.Second)
		s.registry.Wait(grace)
		cancelGrace()
	}

	if err := source.Close(); err != nil {
		log.Printf("⚠️  Frame source close: %v", err)
	}
	s.gate.Revoke()

	s.cfg.Events.Publish(events.New(events.ServerStopped, "", ln.Addr().String(), ""))
	log.Printf("🛑 Streaming stopped")
}

// Dispose stops the server and releases everything it owns, including the
// event publisher when it can be closed. Start fails with ErrDisposed
// afterwards.
func (s *Server) Dispose() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.mu.Unlock()

	s.stopLocked()
	if s.brute != nil {
		s.brute.Close()
	}
	if c, ok := s.cfg.Events.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// URL is the share URL of the current run, or "" when stopped.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.share.URL
}

func (s *Server) ShareInfo() types.ShareInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.share
}

// Addr is the bound listener address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) ActiveSessions() int { return s.registry.Len() }

func (s *Server) Sessions() []types.SessionInfo { return s.registry.Snapshot() }

func (s *Server) Stats() types.Stats {
	s.mu.RLock()
	running, sc, share := s.running, s.stream, s.share
	s.mu.RUnlock()

	st := types.Stats{
		Running:        running,
		ActiveSessions: s.registry.Len(),
		TotalSessions:  s.counters.Sessions.Load(),
		AuthFailures:   s.counters.AuthFailures.Load(),
		FramesSent:     s.counters.Frames.Load(),
		BytesSent:      s.counters.Bytes.Load(),
	}
	if running {
		st.FPS = sc.FrameRate.FramesPerSecond()
		st.Resolution = sc.Resolution.Name()
		st.Host = share.Host
		st.Port = share.Port
	}
	return st
}
