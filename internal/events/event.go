// Package events fans session and server lifecycle events out to sinks
// (log files, the dashboard, Redis) without ever blocking the producer.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ServerStarted    Type = "server_started"
	ServerStopped    Type = "server_stopped"
	SessionOpened    Type = "session_opened"
	SessionRejected  Type = "session_rejected"
	AuthFailed       Type = "auth_failed"
	AuthBlocked      Type = "auth_blocked"
	SessionStreaming Type = "session_streaming"
	SessionClosed    Type = "session_closed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Details    string    `json:"details,omitempty"`
	Error      string    `json:"error,omitempty"`
	FramesSent int64     `json:"frames_sent,omitempty"`
	BytesSent  int64     `json:"bytes_sent,omitempty"`
}

// New stamps an event with an ID and the current time.
func New(t Type, sessionID, remoteAddr, details string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		RemoteAddr: remoteAddr,
		Details:    details,
	}
}

// Publisher accepts events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
