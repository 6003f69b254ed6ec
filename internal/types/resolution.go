package types

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var ErrUnknownResolution = errors.New("unknown resolution")

// Resolution selects the size frames are scaled to before encoding.
type Resolution int

const (
	ResolutionCurrent Resolution = iota
	ResolutionQuadHD
	ResolutionFullHD
	ResolutionHD
)

// Resolutions lists every selectable resolution in menu order.
var Resolutions = []Resolution{ResolutionCurrent, ResolutionQuadHD, ResolutionFullHD, ResolutionHD}

var fixedSizes = map[Resolution]image.Point{
	ResolutionQuadHD: {X: 2560, Y: 1440},
	ResolutionFullHD: {X: 1920, Y: 1080},
	ResolutionHD:     {X: 1280, Y: 720},
}

var resolutionNames = map[Resolution]string{
	ResolutionCurrent: "current",
	ResolutionQuadHD:  "qhd",
	ResolutionFullHD:  "fhd",
	ResolutionHD:      "hd",
}

var resolutionAliases = map[string]Resolution{
	"current":   ResolutionCurrent,
	"native":    ResolutionCurrent,
	"qhd":       ResolutionQuadHD,
	"quadhd":    ResolutionQuadHD,
	"1440p":     ResolutionQuadHD,
	"2560x1440": ResolutionQuadHD,
	"fhd":       ResolutionFullHD,
	"fullhd":    ResolutionFullHD,
	"1080p":     ResolutionFullHD,
	"1920x1080": ResolutionFullHD,
	"hd":        ResolutionHD,
	"720p":      ResolutionHD,
	"1280x720":  ResolutionHD,
}

// ParseResolution accepts the short names and common aliases ("1080p",
// "1920x1080", "fullhd").
func ParseResolution(s string) (Resolution, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if r, ok := resolutionAliases[key]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownResolution, s)
}

// Size returns the target frame size. ResolutionCurrent resolves to the
// display size it is given.
func (r Resolution) Size(display image.Point) (image.Point, error) {
	if r == ResolutionCurrent {
		return display, nil
	}
	if sz, ok := fixedSizes[r]; ok {
		return sz, nil
	}
	return image.Point{}, fmt.Errorf("%w: %d", ErrUnknownResolution, int(r))
}

func (r Resolution) Valid() bool {
	_, ok := resolutionNames[r]
	return ok
}

// Name is the short form accepted by ParseResolution.
func (r Resolution) Name() string {
	if n, ok := resolutionNames[r]; ok {
		return n
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

func (r Resolution) String() string {
	switch r {
	case ResolutionCurrent:
		return "Current resolution"
	case ResolutionQuadHD:
		return "Quad HD (2560x1440)"
	case ResolutionFullHD:
		return "Full HD (1920x1080)"
	case ResolutionHD:
		return "HD (1280x720)"
	}
	return r.Name()
}

// Describe is String with the display size filled in for ResolutionCurrent.
func (r Resolution) Describe(display image.Point) string {
	if r == ResolutionCurrent {
		return fmt.Sprintf("Current resolution (%dx%d)", display.X, display.Y)
	}
	return r.String()
}
