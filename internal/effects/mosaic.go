// Package effects implements the destructive raster transforms the editor
// commits into the working image: mosaic, blur and crop. Each operates on an
// *image.RGBA and never touches pixels outside the requested rectangle.
package effects

import (
	"fmt"
	"image"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// BlockSizePolicy picks the mosaic block side for a region:
// clamp(max(width, height) / Divisor, Min, Max).
type BlockSizePolicy struct {
	Divisor int
	Min     int
	Max     int
}

// DefaultBlockPolicy yields 10..20 pixel blocks.
var DefaultBlockPolicy = BlockSizePolicy{Divisor: 20, Min: 10, Max: 20}

// BlockSize returns the block side for a w x h region.
func (p BlockSizePolicy) BlockSize(w, h int) int {
	if p.Divisor <= 0 {
		p = DefaultBlockPolicy
	}
	side := w
	if h > side {
		side = h
	}
	size := side / p.Divisor
	if size < p.Min {
		size = p.Min
	}
	if p.Max >= p.Min && size > p.Max {
		size = p.Max
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Mosaic replaces every block of r with the per-channel mean of the pixels the
// block covers. Blocks are laid out from r.Min in row-major order; partial
// blocks on the right and bottom edges average only their covered pixels.
func Mosaic(img *image.RGBA, r image.Rectangle, policy BlockSizePolicy) error {
	r = r.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return fmt.Errorf("mosaic %v: %w", r, apperrors.ErrInvalidImage)
	}
	block := policy.BlockSize(r.Dx(), r.Dy())

	for by := r.Min.Y; by < r.Max.Y; by += block {
		for bx := r.Min.X; bx < r.Max.X; bx += block {
			cell := image.Rect(bx, by, bx+block, by+block).Intersect(r)
			averageBlock(img, cell)
		}
	}
	return nil
}

func averageBlock(img *image.RGBA, cell image.Rectangle) {
	var sum [4]uint64
	n := uint64(cell.Dx() * cell.Dy())
	if n == 0 {
		return
	}

	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		i := img.PixOffset(cell.Min.X, y)
		for x := cell.Min.X; x < cell.Max.X; x++ {
			sum[0] += uint64(img.Pix[i])
			sum[1] += uint64(img.Pix[i+1])
			sum[2] += uint64(img.Pix[i+2])
			sum[3] += uint64(img.Pix[i+3])
			i += 4
		}
	}

	var mean [4]uint8
	for c := range sum {
		mean[c] = uint8((sum[c] + n/2) / n)
	}

	for y := cell.Min.Y; y < cell.Max.Y; y++ {
		i := img.PixOffset(cell.Min.X, y)
		for x := cell.Min.X; x < cell.Max.X; x++ {
			copy(img.Pix[i:i+4], mean[:])
			i += 4
		}
	}
}
