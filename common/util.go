package common

import (
	"path"
	"strings"

	"gocv.io/x/gocv"
)

// ImageFileExt returns the encoder format for a destination path based on its file extension.
// Unknown or missing extensions fall back to JPEG.
func ImageFileExt(filePath string) gocv.FileExt {
	ext := strings.ToLower(path.Ext(filePath))
	switch ext {
	case ".png":
		return gocv.PNGFileExt
	case ".jpg", ".jpeg":
		return gocv.JPEGFileExt
	default:
		return gocv.JPEGFileExt
	}
}

// ImageMimeType returns the MIME type for an encoder format
func ImageMimeType(ext gocv.FileExt) string {
	switch ext {
	case gocv.PNGFileExt:
		return "image/png"
	default:
		return "image/jpeg"
	}
}
