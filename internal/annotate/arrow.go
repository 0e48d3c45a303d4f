package annotate

import (
	"image"
	"math"
)

// Arrow head sizing: HeadLength grows linearly with stroke width from
// arrowBaseLength at arrowBaseWidth.
const (
	arrowBaseLength = 12.0
	arrowBaseWidth  = 2.0
	arrowGrowth     = 3.0
	arrowHeadAngle  = math.Pi / 6
)

// HeadLength returns the arrow head length for a stroke width.
func HeadLength(strokeWidth int) float64 {
	l := arrowBaseLength + arrowGrowth*(float64(strokeWidth)-arrowBaseWidth)
	if l < arrowBaseLength/2 {
		l = arrowBaseLength / 2
	}
	return l
}

// ArrowGeometry is the set of points an arrow is stroked through.
type ArrowGeometry struct {
	Start    image.Point
	ShaftEnd image.Point
	Tip      image.Point
	Left     image.Point
	Right    image.Point
}

// ComputeArrow lays out an arrow from start to tip. The head is the triangle
// Tip, Left, Right with wings HeadLength long at 30 degrees either side of the
// shaft; the shaft ends on the middle of the head's base.
func ComputeArrow(start, tip image.Point, strokeWidth int) ArrowGeometry {
	angle := math.Atan2(float64(tip.Y-start.Y), float64(tip.X-start.X))
	head := HeadLength(strokeWidth)

	shaftLen := math.Hypot(float64(tip.X-start.X), float64(tip.Y-start.Y))
	back := head * math.Cos(arrowHeadAngle)
	if back > shaftLen {
		back = shaftLen
	}

	at := func(a, dist float64) image.Point {
		return image.Pt(
			tip.X-int(math.Round(math.Cos(a)*dist)),
			tip.Y-int(math.Round(math.Sin(a)*dist)),
		)
	}
	return ArrowGeometry{
		Start:    start,
		ShaftEnd: at(angle, back),
		Tip:      tip,
		Left:     at(angle+arrowHeadAngle, head),
		Right:    at(angle-arrowHeadAngle, head),
	}
}
