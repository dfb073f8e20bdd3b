package postprocessing

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Rotate rotates img about its center by angle degrees, counter-clockwise for positive angles.
// The result has the same size as img; pixels rotated in from outside the frame are black.
// The caller owns the returned Mat and must close it.
func Rotate(img gocv.Mat, angle float64) gocv.Mat {
	if angle == 0 {
		return img.Clone()
	}

	size := image.Pt(img.Cols(), img.Rows())
	// integer pivot: exact for odd sizes, half a pixel right of and below the true center for even ones
	center := image.Pt(img.Cols()/2, img.Rows()/2)

	m := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer m.Close()

	rotated := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &rotated, m, size, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return rotated
}
