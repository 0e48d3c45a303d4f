package overlay

import (
	"image"
	"image/color"
	"math"
)

// stamp paints a square brush of the given width centred on (x, y).
func stamp(dst *image.RGBA, x, y, width int, c color.RGBA) {
	if width <= 1 {
		BlendPoint(dst, x, y, c)
		return
	}
	r := width / 2
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			BlendPoint(dst, x+dx, y+dy, c)
		}
	}
}

// Line draws a Bresenham line with a square brush.
func Line(dst *image.RGBA, p0, p1 image.Point, c color.RGBA, width int) {
	x0, y0, x1, y1 := p0.X, p0.Y, p1.X, p1.Y
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		stamp(dst, x0, y0, width, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// FillTriangle fills the triangle a, b, c, edges included.
func FillTriangle(dst *image.RGBA, a, b, c image.Point, col color.RGBA) {
	box := image.Rect(
		min(a.X, b.X, c.X), min(a.Y, b.Y, c.Y),
		max(a.X, b.X, c.X)+1, max(a.Y, b.Y, c.Y)+1,
	).Intersect(dst.Bounds())

	edge := func(p, q, r image.Point) int {
		return (q.X-p.X)*(r.Y-p.Y) - (q.Y-p.Y)*(r.X-p.X)
	}
	area := edge(a, b, c)
	if area == 0 {
		Line(dst, a, b, col, 1)
		Line(dst, b, c, col, 1)
		return
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			p := image.Pt(x, y)
			w0, w1, w2 := edge(b, c, p), edge(c, a, p), edge(a, b, p)
			if area < 0 {
				w0, w1, w2 = -w0, -w1, -w2
			}
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				BlendPoint(dst, x, y, col)
			}
		}
	}
}

// Polyline connects consecutive points.
func Polyline(dst *image.RGBA, points []image.Point, c color.RGBA, width int) {
	switch len(points) {
	case 0:
		return
	case 1:
		stamp(dst, points[0].X, points[0].Y, width, c)
		return
	}
	for i := 1; i < len(points); i++ {
		Line(dst, points[i-1], points[i], c, width)
	}
}

// RectOutline strokes the inside edge of r.
func RectOutline(dst *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	tl := r.Min
	br := r.Max.Sub(image.Pt(1, 1))
	Line(dst, tl, image.Pt(br.X, tl.Y), c, width)
	Line(dst, image.Pt(br.X, tl.Y), br, c, width)
	Line(dst, br, image.Pt(tl.X, br.Y), c, width)
	Line(dst, image.Pt(tl.X, br.Y), tl, c, width)
}

// DashedRect strokes r with alternating on/off segments of length dash.
func DashedRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, width, dash int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	if dash <= 0 {
		dash = 6
	}
	br := r.Max.Sub(image.Pt(1, 1))
	dashedLine(dst, r.Min, image.Pt(br.X, r.Min.Y), c, width, dash)
	dashedLine(dst, image.Pt(br.X, r.Min.Y), br, c, width, dash)
	dashedLine(dst, br, image.Pt(r.Min.X, br.Y), c, width, dash)
	dashedLine(dst, image.Pt(r.Min.X, br.Y), r.Min, c, width, dash)
}

// dashedLine handles axis-aligned segments only.
func dashedLine(dst *image.RGBA, p0, p1 image.Point, c color.RGBA, width, dash int) {
	step := image.Pt(sign(p1.X-p0.X), sign(p1.Y-p0.Y))
	length := abs(p1.X-p0.X) + abs(p1.Y-p0.Y)
	p := p0
	for i := 0; i <= length; i++ {
		if (i/dash)%2 == 0 {
			stamp(dst, p.X, p.Y, width, c)
		}
		p = p.Add(step)
	}
}

// Ellipse strokes the ellipse inscribed in r.
func Ellipse(dst *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	cx := float64(r.Min.X+r.Max.X-1) / 2
	cy := float64(r.Min.Y+r.Max.Y-1) / 2
	rx := float64(r.Dx()-1) / 2
	ry := float64(r.Dy()-1) / 2

	steps := int(math.Ceil(2 * math.Pi * math.Sqrt((rx*rx+ry*ry)/2)))
	if steps < 16 {
		steps = 16
	}
	var prev image.Point
	for i := 0; i <= steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		p := image.Pt(
			int(math.Round(cx+math.Cos(angle)*rx)),
			int(math.Round(cy+math.Sin(angle)*ry)),
		)
		if i > 0 {
			Line(dst, prev, p, c, width)
		}
		prev = p
	}
}

// Handle draws a filled square resize handle centred on p.
func Handle(dst *image.RGBA, p image.Point, size int, fill, border color.RGBA) {
	half := size / 2
	r := image.Rect(p.X-half, p.Y-half, p.X-half+size, p.Y-half+size)
	FillRect(dst, r, fill, 1)
	RectOutline(dst, r, border, 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
