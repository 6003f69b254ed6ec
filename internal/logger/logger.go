package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"deskstream/internal/constants"
	"deskstream/internal/events"
)

type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Frames     int64     `json:"frames,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Logger writes one JSON line per session event to a file per run. A nil
// *Logger is valid and discards everything.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logDir string
	runID  string
}

func NewLogger(logDir, runID string) (*Logger, error) {
	if logDir == "" {
		dir, err := DefaultDir("logs")
		if err != nil {
			return nil, fmt.Errorf("failed to get log directory: %w", err)
		}
		logDir = dir
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("%s.log", runID))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		file:   file,
		enc:    json.NewEncoder(file),
		logDir: logDir,
		runID:  runID,
	}, nil
}

// DefaultDir returns the per-OS application data directory for sub.
func DefaultDir(sub string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Local", constants.AppName, sub), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", constants.AppName, sub), nil
	default:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, constants.AppName, sub), nil
		}
		return filepath.Join(homeDir, ".local", "share", constants.AppName, sub), nil
	}
}

func (l *Logger) Log(entry LogEntry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.enc.Encode(entry)
}

func (l *Logger) LogEvent(message string) {
	l.Log(LogEntry{Type: "event", Message: message})
}

// Deliver records a bus event.
func (l *Logger) Deliver(_ context.Context, ev events.Event) error {
	l.Log(LogEntry{
		Timestamp:  ev.Timestamp,
		Type:       string(ev.Type),
		SessionID:  ev.SessionID,
		RemoteAddr: ev.RemoteAddr,
		Frames:     ev.FramesSent,
		Size:       ev.BytesSent,
		Error:      ev.Error,
		Message:    ev.Details,
	})
	return nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) GetLogPath() string {
	if l != nil && l.file != nil {
		return l.file.Name()
	}
	return ""
}
