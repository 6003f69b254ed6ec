package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"

	"deskstream/internal/constants"
)

const encodeBufferSize = 512 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, encodeBufferSize))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= 8*encodeBufferSize {
		bufferPool.Put(buf)
	}
}

func clampQuality(q int) int {
	if q <= 0 {
		return constants.DefaultJPEGQuality
	}
	if q > 100 {
		return 100
	}
	return q
}

// EncodeJPEG encodes img and returns a slice the caller owns.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
