package types

import "time"

type SessionInfo struct {
	ID         string        `json:"id"`
	RemoteAddr string        `json:"remote_addr"`
	State      string        `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	FramesSent int64         `json:"frames_sent"`
	BytesSent  int64         `json:"bytes_sent"`
}

type Stats struct {
	Running        bool    `json:"running"`
	ActiveSessions int     `json:"active_sessions"`
	TotalSessions  int64   `json:"total_sessions"`
	AuthFailures   int64   `json:"auth_failures"`
	FramesSent     int64   `json:"frames_sent"`
	BytesSent      int64   `json:"bytes_sent"`
	FPS            float64 `json:"fps"`
	Resolution     string  `json:"resolution"`
	Host           string  `json:"host,omitempty"`
	Port           int     `json:"port,omitempty"`
}
