package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"deskstream/internal/constants"
	"deskstream/internal/events"
	"deskstream/internal/logger"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	IP        string    `json:"ip,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Details   string    `json:"details"`
	Severity  string    `json:"severity"`
}

// AuditLogger keeps a daily JSON-lines record of security relevant events.
// Writes are capped per minute so a flood of bad requests cannot fill the
// disk. A nil *AuditLogger discards everything.
type AuditLogger struct {
	mu          sync.Mutex
	file        *os.File
	enc         *json.Encoder
	logDir      string
	logCount    map[string]int
	windowStart time.Time
}

func NewAuditLogger(dir string) (*AuditLogger, error) {
	if dir == "" {
		d, err := logger.DefaultDir("audit")
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	filename := filepath.Join(dir, fmt.Sprintf("audit-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &AuditLogger{
		file:        file,
		enc:         json.NewEncoder(file),
		logDir:      dir,
		logCount:    make(map[string]int),
		windowStart: time.Now(),
	}, nil
}

func (al *AuditLogger) Path() string {
	if al == nil || al.file == nil {
		return ""
	}
	return al.file.Name()
}

func (al *AuditLogger) Log(event AuditEvent) {
	if al == nil {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()

	if al.file == nil {
		return
	}

	now := time.Now()

	if now.Sub(al.windowStart) > time.Minute {
		al.windowStart = now
		al.logCount = make(map[string]int)
	}

	totalLogs := 0
	for _, count := range al.logCount {
		totalLogs += count
	}

	if totalLogs >= constants.MaxAuditLogsPerMinute {
		return
	}
	if totalLogs == 0 && !al.hasEnoughDiskSpace() {
		return
	}

	al.logCount[event.EventType]++
	event.Timestamp = now
	al.enc.Encode(event)
}

func (al *AuditLogger) LogAuthFailure(ip, sessionID, reason string) {
	al.Log(AuditEvent{
		EventType: "auth_failure",
		IP:        ip,
		SessionID: sessionID,
		Details:   reason,
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogAuthSuccess(ip, sessionID string) {
	al.Log(AuditEvent{
		EventType: "auth_success",
		IP:        ip,
		SessionID: sessionID,
		Details:   "Authentication successful",
		Severity:  "info",
	})
}

func (al *AuditLogger) LogBruteForce(ip, sessionID, details string) {
	al.Log(AuditEvent{
		EventType: "brute_force",
		IP:        ip,
		SessionID: sessionID,
		Details:   details,
		Severity:  "critical",
	})
}

func (al *AuditLogger) LogConnectionRejected(ip, reason string) {
	al.Log(AuditEvent{
		EventType: "connection_limit",
		IP:        ip,
		Details:   reason,
		Severity:  "warning",
	})
}

func (al *AuditLogger) LogServerStart(details string) {
	al.Log(AuditEvent{
		EventType: "server_start",
		Details:   details,
		Severity:  "info",
	})
}

func (al *AuditLogger) LogServerStop(details string) {
	al.Log(AuditEvent{
		EventType: "server_stop",
		Details:   details,
		Severity:  "info",
	})
}

// Deliver maps bus events onto audit entries; everything else is ignored.
func (al *AuditLogger) Deliver(_ context.Context, ev events.Event) error {
	ip := hostOf(ev.RemoteAddr)
	switch ev.Type {
	case events.AuthFailed:
		al.LogAuthFailure(ip, ev.SessionID, ev.Details)
	case events.AuthBlocked:
		al.LogBruteForce(ip, ev.SessionID, ev.Details)
	case events.SessionStreaming:
		al.LogAuthSuccess(ip, ev.SessionID)
	case events.SessionRejected:
		al.LogConnectionRejected(ip, ev.Details)
	case events.ServerStarted:
		al.LogServerStart(ev.Details)
	case events.ServerStopped:
		al.LogServerStop(ev.Details)
	}
	return nil
}

func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file != nil {
		err := al.file.Close()
		al.file = nil
		return err
	}
	return nil
}
