package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameRate_Interval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{fps: 1, want: time.Second},
		{fps: 3, want: 333 * time.Millisecond},
		{fps: 7, want: 143 * time.Millisecond},
		{fps: 30, want: 33 * time.Millisecond},
		{fps: 60, want: 17 * time.Millisecond},
		{fps: 120, want: 8 * time.Millisecond},
		{fps: 0.5, want: 2 * time.Second},
		{fps: 1000, want: time.Millisecond},
	}

	for _, tt := range tests {
		fr, err := NewFrameRate(tt.fps)
		require.NoError(t, err)
		assert.Equal(t, tt.want, fr.Interval(), "fps=%v", tt.fps)
		assert.Equal(t, tt.fps, fr.FramesPerSecond())
	}
}

func TestNewFrameRate_IntervalNeverBelowOneMillisecond(t *testing.T) {
	t.Parallel()

	for fps := 1.0; fps <= 1000; fps += 7.5 {
		fr, err := NewFrameRate(fps)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fr.Interval(), time.Millisecond, "fps=%v", fps)
	}

	fr, err := NewFrameRate(5000)
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, fr.Interval())
}

func TestNewFrameRate_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	for _, fps := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		fr, err := NewFrameRate(fps)
		require.ErrorIs(t, err, ErrInvalidFrameRate, "fps=%v", fps)
		assert.True(t, fr.IsZero())
	}
}

func TestMustFrameRate_PanicsOnZero(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustFrameRate(0) })
	assert.NotPanics(t, func() { MustFrameRate(25) })
}
