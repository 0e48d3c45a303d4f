package effects

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// DefaultBlurSigma is strong enough that text under the region is unreadable.
const DefaultBlurSigma = 8.0

// Blur applies a Gaussian low-pass filter to r and writes the result back
// into img. Sampling is clamped at the edges of r, so pixels outside r
// neither change nor bleed in.
func Blur(img *image.RGBA, r image.Rectangle, sigma float64) error {
	r = r.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return fmt.Errorf("blur %v: %w", r, apperrors.ErrInvalidImage)
	}
	if sigma <= 0 {
		sigma = DefaultBlurSigma
	}

	region := imaging.Crop(img, r)
	blurred := imaging.Blur(region, sigma)
	draw.Draw(img, r, blurred, image.Point{}, draw.Src)
	return nil
}
