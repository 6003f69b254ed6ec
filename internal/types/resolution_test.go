package types

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	t.Parallel()

	tests := map[string]Resolution{
		"current":   ResolutionCurrent,
		"  FHD ":    ResolutionFullHD,
		"1080p":     ResolutionFullHD,
		"2560x1440": ResolutionQuadHD,
		"hd":        ResolutionHD,
		"720P":      ResolutionHD,
	}
	for in, want := range tests {
		got, err := ParseResolution(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseResolution("8k")
	assert.ErrorIs(t, err, ErrUnknownResolution)
}

func TestResolution_Size(t *testing.T) {
	t.Parallel()

	display := image.Pt(3000, 2000)

	sz, err := ResolutionCurrent.Size(display)
	require.NoError(t, err)
	assert.Equal(t, display, sz)

	sz, err = ResolutionFullHD.Size(display)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1920, 1080), sz)

	_, err = Resolution(42).Size(display)
	assert.ErrorIs(t, err, ErrUnknownResolution)
}

func TestResolution_NamesRoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range Resolutions {
		assert.True(t, r.Valid())
		parsed, err := ParseResolution(r.Name())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	assert.False(t, Resolution(-1).Valid())
	assert.Equal(t, "Current resolution (800x600)", ResolutionCurrent.Describe(image.Pt(800, 600)))
	assert.Equal(t, "HD (1280x720)", ResolutionHD.Describe(image.Pt(800, 600)))
}
