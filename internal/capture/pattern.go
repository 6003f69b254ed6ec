package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// PatternSource renders a synthetic test card with a bar that moves one step
// per frame. It needs no display, so it also serves headless hosts.
type PatternSource struct {
	size    image.Point
	quality int

	mu     sync.Mutex
	img    *image.RGBA
	frame  int
	closed bool
}

func NewPatternSource(size image.Point, quality int) *PatternSource {
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(640, 360)
	}
	return &PatternSource{
		size:    size,
		quality: quality,
		img:     image.NewRGBA(image.Rectangle{Max: size}),
	}
}

func (p *PatternSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	w, h := p.size.X, p.size.Y
	barWidth := w / 16
	if barWidth == 0 {
		barWidth = 1
	}
	barX := (p.frame * barWidth / 4) % w

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 0x80,
				A: 0xff,
			}
			if x >= barX && x < barX+barWidth {
				c = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			}
			p.img.SetRGBA(x, y, c)
		}
	}
	p.frame++

	return EncodeJPEG(p.img, p.quality)
}

func (p *PatternSource) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
