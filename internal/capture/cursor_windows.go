//go:build windows

package capture

import (
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procGetCursorPos = user32.NewProc("GetCursorPos")
)

func cursorPosition() (image.Point, bool) {
	if err := procGetCursorPos.Find(); err != nil {
		return image.Point{}, false
	}

	var pt struct{ X, Y int32 }
	r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r == 0 {
		return image.Point{}, false
	}
	return image.Pt(int(pt.X), int(pt.Y)), true
}
