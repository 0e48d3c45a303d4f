package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bryanchriswhite/focusshot/internal/overlay"
)

// Guide colors for previews; they are never baked into output.
var (
	previewColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	previewFill  = color.RGBA{R: 64, G: 64, B: 64, A: 255}
	labelBG      = color.RGBA{A: 255}
	cropShade    = 0.5
)

var previewTitles = map[Kind]string{
	MosaicPreview: "Mosaic",
	BlurPreview:   "Blur",
	CropGuide:     "Crop",
}

// Render draws a onto dst translated by offset. Offset maps annotation
// coordinates into dst coordinates.
func Render(dst *image.RGBA, a Annotation, offset image.Point) {
	style := a.Style
	if style.StrokeWidth <= 0 {
		style.StrokeWidth = DefaultStyle.StrokeWidth
	}

	switch a.Kind {
	case Rectangle:
		overlay.RectOutline(dst, a.Bounds.Canon().Add(offset), style.StrokeColor, style.StrokeWidth)
	case Ellipse:
		overlay.Ellipse(dst, a.Bounds.Canon().Add(offset), style.StrokeColor, style.StrokeWidth)
	case Arrow:
		if len(a.Points) < 2 {
			return
		}
		renderArrow(dst, a.Points[0].Add(offset), a.Points[len(a.Points)-1].Add(offset), style)
	case FreehandStroke:
		pts := make([]image.Point, len(a.Points))
		for i, p := range a.Points {
			pts[i] = p.Add(offset)
		}
		overlay.Polyline(dst, pts, style.StrokeColor, style.StrokeWidth)
	case Text:
		scale := style.FontScale
		if scale <= 0 {
			scale = DefaultStyle.FontScale
		}
		at := a.Bounds.Min.Add(offset)
		overlay.DrawText(dst, at.X, at.Y, a.Text, style.StrokeColor, scale)
	case MosaicPreview, BlurPreview, CropGuide:
		RenderPreview(dst, Preview{EffectKind: a.Kind, Rect: a.Bounds}, offset)
	}
}

func renderArrow(dst *image.RGBA, start, tip image.Point, style Style) {
	g := ComputeArrow(start, tip, style.StrokeWidth)
	overlay.Line(dst, g.Start, g.ShaftEnd, style.StrokeColor, style.StrokeWidth)
	overlay.FillTriangle(dst, g.Tip, g.Left, g.Right, style.StrokeColor)
}

// RenderPreview draws the in-progress guide for a destructive edit.
func RenderPreview(dst *image.RGBA, p Preview, offset image.Point) {
	r := p.Rect.Canon().Add(offset)
	switch p.EffectKind {
	case CropGuide:
		overlay.Dim(dst, r, cropShade)
		overlay.DashedRect(dst, r, previewColor, 1, 6)
	default:
		overlay.FillRect(dst, r, previewFill, 0.35)
		overlay.DashedRect(dst, r, previewColor, 1, 4)
	}
	if title, ok := previewTitles[p.EffectKind]; ok && r.Dx() > 0 && r.Dy() > 0 {
		overlay.Label(dst, r.Min.X+4, r.Min.Y+4, fmt.Sprintf("%s %dx%d", title, r.Dx(), r.Dy()), previewColor, labelBG, 0.6)
	}
}

// RenderAll draws annotations in list order.
func RenderAll(dst *image.RGBA, list []Annotation, offset image.Point) {
	for _, a := range list {
		Render(dst, a, offset)
	}
}
