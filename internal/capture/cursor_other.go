//go:build !windows && !linux

package capture

import "image"

func cursorPosition() (image.Point, bool) {
	return image.Point{}, false
}
