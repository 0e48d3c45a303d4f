package effects

import (
	"fmt"
	"image"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// Crop copies r out of img into a new raster whose origin is (0, 0).
func Crop(img *image.RGBA, r image.Rectangle) (*image.RGBA, error) {
	r = r.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop %v: %w", r, apperrors.ErrInvalidImage)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	rowBytes := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		dst := y * out.Stride
		copy(out.Pix[dst:dst+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out, nil
}
