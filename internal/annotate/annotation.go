// Package annotate models the editor's overlay elements and the working
// image they are composed over.
//
// Shapes, arrows, strokes and text are non-destructive: they live in an
// ordered list and are re-rendered on every frame. Mosaic, blur and crop are
// destructive: while the pointer is down they exist only as a Preview, and on
// release they become a Committed effect whose pixels are baked into the
// working image.
package annotate

import (
	"fmt"
	"image"
	"image/color"
)

// Kind identifies an annotation type.
type Kind int

const (
	Rectangle Kind = iota
	Ellipse
	Arrow
	Text
	FreehandStroke
	MosaicPreview
	BlurPreview
	CropGuide
)

var kindNames = map[Kind]string{
	Rectangle:      "rectangle",
	Ellipse:        "ellipse",
	Arrow:          "arrow",
	Text:           "text",
	FreehandStroke: "freehand",
	MosaicPreview:  "mosaic",
	BlurPreview:    "blur",
	CropGuide:      "crop",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// Destructive reports whether the kind rewrites pixels when committed.
func (k Kind) Destructive() bool {
	return k == MosaicPreview || k == BlurPreview || k == CropGuide
}

// Style is the stroke applied to an annotation.
type Style struct {
	StrokeColor color.RGBA `json:"stroke_color"`
	StrokeWidth int        `json:"stroke_width"`
	// FontScale multiplies the 7x13 bitmap font for text annotations.
	FontScale int `json:"font_scale,omitempty"`
}

// DefaultStyle is a 3px red stroke.
var DefaultStyle = Style{
	StrokeColor: color.RGBA{R: 255, A: 255},
	StrokeWidth: 3,
	FontScale:   2,
}

// Annotation is one committed overlay element. Bounds holds the geometry for
// box-shaped kinds; Points holds the start/end of an arrow or the samples of a
// freehand stroke; Text anchors its top-left corner at Bounds.Min.
type Annotation struct {
	ID     string          `json:"id"`
	Kind   Kind            `json:"kind"`
	Bounds image.Rectangle `json:"bounds"`
	Points []image.Point   `json:"points,omitempty"`
	Text   string          `json:"text,omitempty"`
	Style  Style           `json:"style"`
}

// Effect is the two-state lifecycle of a destructive edit: Preview while the
// user is still dragging, Committed once the final pixels exist.
type Effect interface {
	Kind() Kind
	Region() image.Rectangle
	isEffect()
}

// Preview marks a region for a pending destructive edit without touching pixels.
type Preview struct {
	EffectKind Kind
	Rect       image.Rectangle
}

func (p Preview) Kind() Kind              { return p.EffectKind }
func (p Preview) Region() image.Rectangle { return p.Rect }
func (Preview) isEffect()                 {}

// Committed carries the final pixels for Rect. Pixels has its origin at (0, 0)
// and the same size as Rect.
type Committed struct {
	EffectKind Kind
	Rect       image.Rectangle
	Pixels     *image.RGBA
}

func (c Committed) Kind() Kind              { return c.EffectKind }
func (c Committed) Region() image.Rectangle { return c.Rect }
func (Committed) isEffect()                 {}
