package overlay

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// LineHeight is the unscaled height of one text line in pixels.
func LineHeight() int {
	return face.Metrics().Height.Ceil()
}

// MeasureText returns the pixel size of text at the given integer scale.
// Lines are split on '\n'.
func MeasureText(text string, scale int) image.Point {
	if scale < 1 {
		scale = 1
	}
	d := &font.Drawer{Face: face}
	lines := strings.Split(text, "\n")
	width := 0
	for _, line := range lines {
		if w := d.MeasureString(line).Ceil(); w > width {
			width = w
		}
	}
	return image.Pt(width*scale, len(lines)*LineHeight()*scale)
}

// DrawText renders text with its top-left corner at (x, y), so text grows
// downward from the anchor. The bitmap font is scaled by integer factors with
// nearest-neighbour sampling to keep glyph edges crisp.
func DrawText(dst *image.RGBA, x, y int, text string, c color.RGBA, scale int) image.Rectangle {
	if scale < 1 {
		scale = 1
	}
	size := MeasureText(text, 1)
	if size.X == 0 {
		return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x, y+size.Y*scale)}
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
	}
	ascent := face.Metrics().Ascent
	for i, line := range strings.Split(text, "\n") {
		d.Dot = fixed.Point26_6{X: 0, Y: ascent + fixed.I(i*LineHeight())}
		d.DrawString(line)
	}

	var src image.Image = glyphs
	if scale > 1 {
		scaled := image.NewRGBA(image.Rect(0, 0, size.X*scale, size.Y*scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), glyphs, glyphs.Bounds(), draw.Src, nil)
		src = scaled
	}
	BlendImage(dst, src, x, y, 1)
	return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+size.X*scale, y+size.Y*scale)}
}

// Label draws text on a padded background box, used for preview captions and
// the selection size readout.
func Label(dst *image.RGBA, x, y int, text string, fg, bg color.RGBA, opacity float64) image.Rectangle {
	const padding = 4
	size := MeasureText(text, 1)
	box := image.Rect(x, y, x+size.X+padding*2, y+size.Y+padding*2)
	FillRect(dst, box, bg, opacity)
	DrawText(dst, x+padding, y+padding, text, fg, 1)
	return box
}
