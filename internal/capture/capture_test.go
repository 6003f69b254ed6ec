package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	t.Parallel()

	frame := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	src := NewStaticSource(frame)
	frame[0] = 0

	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, got)

	require.NoError(t, src.Close())
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStaticSource_HonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStaticSource([]byte("x")).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPatternSource_ProducesDecodableFrames(t *testing.T) {
	t.Parallel()

	src := NewPatternSource(image.Pt(64, 48), 80)
	defer src.Close()

	first, err := src.Next(context.Background())
	require.NoError(t, err)
	second, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "bar should move between frames")

	img, err := jpeg.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(64, 48), img.Bounds().Size())
}

func TestPatternSource_ConcurrentPulls(t *testing.T) {
	t.Parallel()

	src := NewPatternSource(image.Pt(32, 32), 50)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				frame, err := src.Next(context.Background())
				assert.NoError(t, err)
				_, err = jpeg.Decode(bytes.NewReader(frame))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, src.Close())
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestScaler(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	var s scaler

	assert.Same(t, src, s.scale(src, image.Pt(100, 50)).(*image.RGBA))

	out := s.scale(src, image.Pt(40, 20))
	assert.Equal(t, image.Pt(40, 20), out.Bounds().Size())
	reused := s.scale(src, image.Pt(40, 20))
	assert.Same(t, out, reused)
}

func TestDrawCursor_ClipsToBounds(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.NotPanics(t, func() { drawCursor(img, image.Pt(8, 8)) })
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAAt(8, 8))

	drawCursor(img, image.Pt(0, 0))
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.RGBAAt(1, 2))
}

func TestEncodeJPEG_ClampsQuality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 75, clampQuality(0))
	assert.Equal(t, 100, clampQuality(250))
	assert.Equal(t, 40, clampQuality(40))

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	out, err := EncodeJPEG(img, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, out[:2])
}
