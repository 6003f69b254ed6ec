package types

import "time"

// StreamConfig is everything a server start needs to know.
type StreamConfig struct {
	BindAddress   string
	Port          int
	Resolution    Resolution
	FrameRate     FrameRate
	DisplayCursor bool

	// Frame source settings.
	JPEGQuality int
	Display     int
	TestPattern bool
}

// ShareInfo describes a running server as handed out to viewers.
type ShareInfo struct {
	URL         string    `json:"-"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Fingerprint string    `json:"fingerprint"`
	StartedAt   time.Time `json:"started_at"`
}
