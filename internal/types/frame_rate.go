package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidFrameRate = errors.New("frames per second must be a positive number")

// FrameRate is the target delivery rate of a stream. The zero value is not
// usable; construct it with NewFrameRate.
type FrameRate struct {
	fps      float64
	interval time.Duration
}

// NewFrameRate returns a FrameRate whose interval is round(1000/fps)
// milliseconds, never less than one millisecond.
func NewFrameRate(fps float64) (FrameRate, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return FrameRate{}, fmt.Errorf("%w: got %v", ErrInvalidFrameRate, fps)
	}

	ms := math.Round(1000 / fps)
	if ms < 1 {
		ms = 1
	}

	return FrameRate{
		fps:      fps,
		interval: time.Duration(ms) * time.Millisecond,
	}, nil
}

// MustFrameRate is NewFrameRate for constants known to be valid.
func MustFrameRate(fps float64) FrameRate {
	fr, err := NewFrameRate(fps)
	if err != nil {
		panic(err)
	}
	return fr
}

func (f FrameRate) FramesPerSecond() float64 { return f.fps }

func (f FrameRate) Interval() time.Duration { return f.interval }

func (f FrameRate) IsZero() bool { return f.interval == 0 }

func (f FrameRate) String() string {
	return fmt.Sprintf("%g fps (%v)", f.fps, f.interval)
}
