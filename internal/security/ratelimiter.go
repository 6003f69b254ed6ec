package security

import (
	"net"
	"sync"
	"time"

	"deskstream/internal/constants"
)

// ConnectionLimiter caps concurrent connections per remote IP.
type ConnectionLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	maxConn     int
}

func NewConnectionLimiter(maxConn int) *ConnectionLimiter {
	return &ConnectionLimiter{
		connections: make(map[string]int),
		maxConn:     maxConn,
	}
}

// TryConnect reserves a slot for ip. A limit of zero or less disables the
// check.
func (cl *ConnectionLimiter) TryConnect(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.maxConn > 0 && cl.connections[ip] >= cl.maxConn {
		return false
	}
	cl.connections[ip]++
	return true
}

func (cl *ConnectionLimiter) Disconnect(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.connections[ip] > 0 {
		cl.connections[ip]--
		if cl.connections[ip] == 0 {
			delete(cl.connections, ip)
		}
	}
}

// RemoteIP extracts the host part of a connection's remote address.
func RemoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	return hostOf(addr.String())
}

// BruteForceProtector locks an IP out after repeated authentication
// failures.
type BruteForceProtector struct {
	mu            sync.Mutex
	attempts      map[string]*ipAttempts
	maxAttempts   int
	blockDuration time.Duration
	now           func() time.Time
	stop          chan struct{}
	stopOnce      sync.Once
}

type ipAttempts struct {
	count     int
	blockedAt *time.Time
}

func NewBruteForceProtector(maxAttempts int, blockDuration time.Duration) *BruteForceProtector {
	bf := &BruteForceProtector{
		attempts:      make(map[string]*ipAttempts),
		maxAttempts:   maxAttempts,
		blockDuration: blockDuration,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	go bf.cleanup()
	return bf
}

// Check reports whether ip may attempt to authenticate.
func (bf *BruteForceProtector) Check(ip string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	attempts, exists := bf.attempts[ip]
	if !exists {
		return true
	}

	if attempts.blockedAt != nil {
		if bf.now().Sub(*attempts.blockedAt) < bf.blockDuration {
			return false
		}
		attempts.count = 0
		attempts.blockedAt = nil
	}

	return attempts.count < bf.maxAttempts
}

// RecordFailure counts a failed attempt and returns the running total.
func (bf *BruteForceProtector) RecordFailure(ip string) int {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	attempts, exists := bf.attempts[ip]
	if !exists {
		attempts = &ipAttempts{count: 0}
		bf.attempts[ip] = attempts
	}

	attempts.count++
	if attempts.count >= bf.maxAttempts && attempts.blockedAt == nil {
		now := bf.now()
		attempts.blockedAt = &now
	}
	return attempts.count
}

func (bf *BruteForceProtector) RecordSuccess(ip string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	delete(bf.attempts, ip)
}

// Reset forgets every IP; used when a new credential is issued.
func (bf *BruteForceProtector) Reset() {
	bf.mu.Lock()
	bf.attempts = make(map[string]*ipAttempts)
	bf.mu.Unlock()
}

func (bf *BruteForceProtector) Close() {
	bf.stopOnce.Do(func() { close(bf.stop) })
}

func (bf *BruteForceProtector) cleanup() {
	ticker := time.NewTicker(constants.GuardCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-bf.stop:
			return
		case <-ticker.C:
			bf.sweep()
		}
	}
}

func (bf *BruteForceProtector) sweep() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for ip, attempts := range bf.attempts {
		if attempts.blockedAt != nil && bf.now().Sub(*attempts.blockedAt) > bf.blockDuration {
			delete(bf.attempts, ip)
		}
	}
}
