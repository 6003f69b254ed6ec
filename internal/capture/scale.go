package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// scaler resizes captures into a reused destination image.
type scaler struct {
	dst *image.RGBA
}

func (s *scaler) scale(src image.Image, size image.Point) image.Image {
	if src.Bounds().Size() == size {
		return src
	}
	if s.dst == nil || s.dst.Bounds().Size() != size {
		s.dst = image.NewRGBA(image.Rectangle{Max: size})
	}
	draw.ApproxBiLinear.Scale(s.dst, s.dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return s.dst
}
