package capture

import (
	"image"
	"image/color"
)

// Arrow pointer, 'X' outline, '.' fill, anything else transparent.
var arrowGlyph = []string{
	"X",
	"XX",
	"X.X",
	"X..X",
	"X...X",
	"X....X",
	"X.....X",
	"X......X",
	"X.......X",
	"X........X",
	"X.....XXXXX",
	"X..X..X",
	"X.X X..X",
	"XX  X..X",
	"X    X..X",
	"     X..X",
	"      XX",
}

// drawCursor paints the pointer with its hot spot at p, clipped to img.
func drawCursor(img *image.RGBA, p image.Point) {
	bounds := img.Bounds()
	for dy, row := range arrowGlyph {
		for dx, ch := range row {
			var c color.RGBA
			switch ch {
			case 'X':
				c = color.RGBA{A: 0xff}
			case '.':
				c = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			default:
				continue
			}
			pt := image.Pt(p.X+dx, p.Y+dy)
			if pt.In(bounds) {
				img.SetRGBA(pt.X, pt.Y, c)
			}
		}
	}
}
