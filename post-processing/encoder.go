package postprocessing

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when no quality is configured
const DefaultJPEGQuality = 95

// ErrEmptyFrame is returned when there is nothing to encode
var ErrEmptyFrame = errors.New("frame is empty")

// Encode compresses a frame into an image byte stream of the given format.
// quality only applies to JPEG and falls back to DefaultJPEGQuality when out of range.
func Encode(img gocv.Mat, ext gocv.FileExt, quality int) ([]byte, error) {
	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	var buf *gocv.NativeByteBuffer
	var err error
	if ext == gocv.JPEGFileExt {
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		buf, err = gocv.IMEncodeWithParams(ext, img, []int{int(gocv.IMWriteJpegQuality), quality})
	} else {
		buf, err = gocv.IMEncode(ext, img)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as %s: %w", ext, err)
	}
	defer buf.Close()

	// the native buffer is released on Close, keep our own copy
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
