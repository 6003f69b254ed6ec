package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"deskstream/internal/constants"
	"deskstream/internal/types"
)

var ErrNoDisplay = errors.New("no active display")

type ScreenOptions struct {
	Display       int
	Resolution    types.Resolution
	DisplayCursor bool
	Quality       int
	// CacheTTL lets viewers that pull within the same window share one
	// capture. Zero uses constants.FrameCacheTTL.
	CacheTTL time.Duration
}

// ScreenSource grabs one display, overlays the pointer when asked, scales to
// the selected resolution and encodes to JPEG. Captures are serialised; a
// frame captured within CacheTTL is handed to every caller in that window.
type ScreenSource struct {
	opts   ScreenOptions
	bounds image.Rectangle
	size   image.Point

	mu         sync.Mutex
	scaler     scaler
	last       []byte
	capturedAt time.Time
	closed     bool
}

func NewScreenSource(opts ScreenOptions) (*ScreenSource, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}
	if opts.Display < 0 || opts.Display >= n {
		return nil, fmt.Errorf("display %d out of range (0-%d)", opts.Display, n-1)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = constants.FrameCacheTTL
	}

	bounds := screenshot.GetDisplayBounds(opts.Display)
	size, err := opts.Resolution.Size(bounds.Size())
	if err != nil {
		return nil, err
	}

	return &ScreenSource{opts: opts, bounds: bounds, size: size}, nil
}

// DisplaySize returns the native size of the captured display.
func (s *ScreenSource) DisplaySize() image.Point { return s.bounds.Size() }

// FrameSize returns the size of the frames produced.
func (s *ScreenSource) FrameSize() image.Point { return s.size }

func (s *ScreenSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.last != nil && time.Since(s.capturedAt) < s.opts.CacheTTL {
		return s.last, nil
	}

	raw, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}

	if s.opts.DisplayCursor {
		if p, ok := cursorPosition(); ok && p.In(s.bounds) {
			drawCursor(raw, p.Sub(s.bounds.Min).Add(raw.Bounds().Min))
		}
	}

	frame, err := EncodeJPEG(s.scaler.scale(raw, s.size), s.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	s.last = frame
	s.capturedAt = time.Now()
	return frame, nil
}

func (s *ScreenSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.last = nil
	s.scaler.dst = nil
	return nil
}

// Displays describes every active display, for the console picker.
func Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}
