// Package overlay holds the raster primitives the editor draws with: alpha
// blending, strokes, outlines and bitmap text. Everything draws onto an
// *image.RGBA and clips to its bounds.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
)

// BlendImage blends src onto dst with its top-left corner at (x, y) and the
// given opacity (0.0 to 1.0).
func BlendImage(dst *image.RGBA, src image.Image, x, y int, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	srcBounds := src.Bounds()
	dstBounds := dst.Bounds()

	for sy := srcBounds.Min.Y; sy < srcBounds.Max.Y; sy++ {
		dy := y + (sy - srcBounds.Min.Y)
		if dy < dstBounds.Min.Y || dy >= dstBounds.Max.Y {
			continue
		}
		for sx := srcBounds.Min.X; sx < srcBounds.Max.X; sx++ {
			dx := x + (sx - srcBounds.Min.X)
			if dx < dstBounds.Min.X || dx >= dstBounds.Max.X {
				continue
			}
			r, g, b, a := src.At(sx, sy).RGBA()
			blendPixel(dst, dx, dy, r, g, b, a, opacity)
		}
	}
}

// blendPixel composites one premultiplied 16-bit source pixel over dst.
func blendPixel(dst *image.RGBA, x, y int, sr, sg, sb, sa uint32, opacity float64) {
	alpha := float64(sa) * opacity / 0xffff
	if alpha <= 0 {
		return
	}
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	inv := 1 - alpha
	p[0] = uint8((float64(sr)*opacity/0xffff*255 + float64(p[0])*inv) + 0.5)
	p[1] = uint8((float64(sg)*opacity/0xffff*255 + float64(p[1])*inv) + 0.5)
	p[2] = uint8((float64(sb)*opacity/0xffff*255 + float64(p[2])*inv) + 0.5)
	p[3] = uint8((alpha*255 + float64(p[3])*inv) + 0.5)
}

// BlendPoint blends a single color at (x, y) if it lies inside dst.
func BlendPoint(dst *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Bounds()) {
		return
	}
	if c.A == 0xff {
		dst.SetRGBA(x, y, c)
		return
	}
	r, g, b, a := c.RGBA()
	blendPixel(dst, x, y, r, g, b, a, 1)
}

// FillRect fills r with c at the given opacity.
func FillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	if opacity >= 1 && c.A == 0xff {
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
		return
	}
	cr, cg, cb, ca := c.RGBA()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blendPixel(dst, x, y, cr, cg, cb, ca, opacity)
		}
	}
}

// Dim darkens everything in dst outside keep, the look of an active selection.
func Dim(dst *image.RGBA, keep image.Rectangle, opacity float64) {
	shade := color.RGBA{A: 0xff}
	b := dst.Bounds()
	keep = keep.Intersect(b)
	if keep.Empty() {
		FillRect(dst, b, shade, opacity)
		return
	}
	FillRect(dst, image.Rect(b.Min.X, b.Min.Y, b.Max.X, keep.Min.Y), shade, opacity)
	FillRect(dst, image.Rect(b.Min.X, keep.Max.Y, b.Max.X, b.Max.Y), shade, opacity)
	FillRect(dst, image.Rect(b.Min.X, keep.Min.Y, keep.Min.X, keep.Max.Y), shade, opacity)
	FillRect(dst, image.Rect(keep.Max.X, keep.Min.Y, b.Max.X, keep.Max.Y), shade, opacity)
}

// Clone returns a copy of img with the same bounds.
func Clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	if img.Stride == out.Stride && len(img.Pix) == len(out.Pix) {
		copy(out.Pix, img.Pix)
		return out
	}
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
