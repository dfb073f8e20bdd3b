package postprocessing

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var red = color.RGBA{R: 255, A: 0}

func newWhiteFrame(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// newPatternFrame returns a frame with a horizontal gradient so interpolation errors are visible
func newPatternFrame(rows, cols int) gocv.Mat {
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			img.SetUCharAt3(row, col, 0, uint8(col*255/cols))
			img.SetUCharAt3(row, col, 1, uint8(row*255/rows))
			img.SetUCharAt3(row, col, 2, 128)
		}
	}
	return img
}

func isBlack(v gocv.Vecb) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

func isWhite(v gocv.Vecb) bool {
	return v[0] == 255 && v[1] == 255 && v[2] == 255
}

func isRed(v gocv.Vecb) bool {
	return v[0] < 30 && v[1] < 30 && v[2] > 225
}

func TestRotate_PreservesDimensions(t *testing.T) {
	sizes := []image.Point{{X: 512, Y: 512}, {X: 64, Y: 48}, {X: 31, Y: 77}}
	angles := []float64{0, 12.5, 45.2, 90, -30, 180, 360, 725.3}

	for _, size := range sizes {
		img := newWhiteFrame(size.Y, size.X)
		for _, angle := range angles {
			rotated := Rotate(img, angle)
			if rotated.Rows() != size.Y || rotated.Cols() != size.X {
				t.Errorf("Rotate(%v, %.1f): expected %dx%d, got %dx%d",
					size, angle, size.X, size.Y, rotated.Cols(), rotated.Rows())
			}
			if rotated.Type() != img.Type() {
				t.Errorf("Rotate(%v, %.1f): expected type %v, got %v", size, angle, img.Type(), rotated.Type())
			}
			rotated.Close()
		}
		img.Close()
	}
}

func TestRotate_ZeroIsIdentity(t *testing.T) {
	img := newPatternFrame(48, 64)
	defer img.Close()

	rotated := Rotate(img, 0)
	defer rotated.Close()

	if !bytes.Equal(img.ToBytes(), rotated.ToBytes()) {
		t.Error("Rotation by 0 degrees should not change pixel content")
	}
}

func TestRotate_FullTurnMatchesIdentity(t *testing.T) {
	img := newPatternFrame(48, 64)
	defer img.Close()

	rotated := Rotate(img, 360)
	defer rotated.Close()

	src := img.ToBytes()
	dst := rotated.ToBytes()
	if len(src) != len(dst) {
		t.Fatalf("Expected %d bytes, got %d", len(src), len(dst))
	}

	for i := range src {
		diff := int(src[i]) - int(dst[i])
		if diff < -2 || diff > 2 {
			t.Fatalf("Byte %d differs by %d after a full turn", i, diff)
		}
	}
}

func TestRotate_ExposedCornersAreBlack(t *testing.T) {
	img := newWhiteFrame(512, 512)
	defer img.Close()

	rotated := Rotate(img, 45.2)
	defer rotated.Close()

	corners := []image.Point{{X: 0, Y: 0}, {X: 511, Y: 0}, {X: 0, Y: 511}, {X: 511, Y: 511}, {X: 20, Y: 20}}
	for _, p := range corners {
		if v := rotated.GetVecbAt(p.Y, p.X); !isBlack(v) {
			t.Errorf("Expected black corner pixel at %v, got %v", p, v)
		}
	}

	// the center stays inside the rotated region
	if v := rotated.GetVecbAt(256, 256); !isWhite(v) {
		t.Errorf("Expected white center pixel, got %v", v)
	}
}

func TestRotate_CounterClockwise(t *testing.T) {
	img := newWhiteFrame(512, 512)
	defer img.Close()

	// a red marker right of the center
	gocv.Rectangle(&img, image.Rect(390, 246, 411, 267), red, -1)
	if v := img.GetVecbAt(256, 400); !isRed(v) {
		t.Fatalf("Test setup: expected red marker, got %v", v)
	}

	rotated := Rotate(img, 90)
	defer rotated.Close()

	// counter-clockwise moves the right side to the top
	if v := rotated.GetVecbAt(112, 256); !isRed(v) {
		t.Errorf("Expected red marker above the center after rotation, got %v", v)
	}
	if v := rotated.GetVecbAt(256, 400); !isWhite(v) {
		t.Errorf("Expected marker to have left its original position, got %v", v)
	}
	if v := rotated.GetVecbAt(400, 256); !isWhite(v) {
		t.Errorf("Marker should not appear below the center, got %v", v)
	}
}

func TestRotate_LineFollowsInverseRotation(t *testing.T) {
	img := newWhiteFrame(512, 512)
	defer img.Close()
	gocv.Line(&img, image.Pt(0, 256), image.Pt(512, 256), red, 5)

	rotated := Rotate(img, 90)
	defer rotated.Close()

	// the horizontal line becomes vertical through the center
	for _, row := range []int{60, 150, 256, 350, 450} {
		if v := rotated.GetVecbAt(row, 256); !isRed(v) {
			t.Errorf("Expected red pixel at row %d on the rotated line, got %v", row, v)
		}
	}
	for _, col := range []int{60, 150, 350, 450} {
		if v := rotated.GetVecbAt(256, col); !isWhite(v) {
			t.Errorf("Expected white pixel at col %d off the rotated line, got %v", col, v)
		}
	}
}

func TestRotate_DoesNotModifySource(t *testing.T) {
	img := newPatternFrame(48, 64)
	defer img.Close()
	before := img.ToBytes()

	rotated := Rotate(img, 33)
	rotated.Close()

	if !bytes.Equal(before, img.ToBytes()) {
		t.Error("Rotate must not modify its input")
	}
}

func TestRotate_OddSizeHalfTurnMirrorsPixels(t *testing.T) {
	rows, cols := 31, 47
	img := newPatternFrame(rows, cols)
	defer img.Close()

	rotated := Rotate(img, 180)
	defer rotated.Close()

	// the pivot is the exact center for odd sizes, so a half turn mirrors both axes
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			want := img.GetVecbAt(rows-1-row, cols-1-col)
			got := rotated.GetVecbAt(row, col)
			for ch := 0; ch < 3; ch++ {
				diff := int(want[ch]) - int(got[ch])
				if diff < -1 || diff > 1 {
					t.Fatalf("Pixel (%d, %d) channel %d: expected %d, got %d", row, col, ch, want[ch], got[ch])
				}
			}
		}
	}
}
