package interaction

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/bryanchriswhite/focusshot/internal/annotate"
	"github.com/bryanchriswhite/focusshot/internal/overlay"
)

var (
	guideColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	handleFill  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	handleEdge  = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	labelBG     = color.RGBA{A: 255}
	outsideDim  = 0.45
	handleSize  = 8
	labelMargin = 6
)

const selectHint = "Drag to select, Enter to confirm, Esc to cancel"

// Frame renders the editor view in capture coordinates. Guides, handles and
// labels are drawn here only and never reach exported output. Returns nil when
// there is no image.
func (c *Controller) Frame() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainLocked()
	if c.raw == nil {
		return nil
	}

	out := overlay.Clone(c.raw)
	if c.doc == nil {
		c.frameSelectingLocked(out)
	} else {
		c.frameEditingLocked(out)
	}
	return out
}

func (c *Controller) frameSelectingLocked(out *image.RGBA) {
	r, ok := c.sel.Region()
	if !ok {
		overlay.Dim(out, image.Rectangle{}, outsideDim)
		b := out.Bounds()
		size := overlay.MeasureText(selectHint, 1)
		overlay.Label(out, b.Min.X+(b.Dx()-size.X)/2, b.Min.Y+b.Dy()/2, selectHint, guideColor, labelBG, 0.6)
		return
	}
	overlay.Dim(out, r, outsideDim)
	overlay.RectOutline(out, r, guideColor, 1)
	for _, h := range c.sel.Handles() {
		overlay.Handle(out, h, handleSize, handleFill, handleEdge)
	}
	sizeLabel(out, r, fmt.Sprintf("%d x %d", r.Dx(), r.Dy()))
}

func (c *Controller) frameEditingLocked(out *image.RGBA) {
	origin := c.doc.Origin()
	composed := c.doc.Compose()
	placed := composed.Bounds().Add(origin)

	overlay.Dim(out, image.Rectangle{}, outsideDim)
	draw.Draw(out, placed, composed, image.Point{}, draw.Src)
	overlay.RectOutline(out, placed.Inset(-1), guideColor, 1)

	if c.dragging {
		r := image.Rectangle{Min: c.dragStart, Max: c.dragCur}.Canon()
		switch c.tool {
		case ToolRectangle, ToolEllipse:
			annotate.Render(out, annotate.Annotation{Kind: c.tool.Kind(), Bounds: r, Style: c.opts.Style}, origin)
		case ToolArrow:
			annotate.Render(out, annotate.Annotation{
				Kind:   annotate.Arrow,
				Points: []image.Point{c.dragStart, c.dragCur},
				Style:  c.opts.Style,
			}, origin)
		case ToolFreehand:
			annotate.Render(out, annotate.Annotation{Kind: annotate.FreehandStroke, Points: c.points, Style: c.opts.Style}, origin)
		case ToolMosaic, ToolBlur, ToolCrop:
			annotate.RenderPreview(out, annotate.Preview{EffectKind: c.tool.Kind(), Rect: r}, origin)
		}
	}
	if c.inflight != nil {
		annotate.RenderPreview(out, *c.inflight, origin)
	}
	if c.text != nil {
		at := c.text.at.Add(origin)
		scale := c.opts.Style.FontScale
		if scale <= 0 {
			scale = annotate.DefaultStyle.FontScale
		}
		overlay.DrawText(out, at.X, at.Y, string(c.text.buf)+"_", c.opts.Style.StrokeColor, scale)
	}

	sizeLabel(out, placed, fmt.Sprintf("%d %s", int(c.tool), c.tool))
}

// sizeLabel puts text just above r, or inside it when r touches the top edge.
func sizeLabel(out *image.RGBA, r image.Rectangle, text string) {
	h := overlay.LineHeight() + 8
	y := r.Min.Y - h - labelMargin
	if y < out.Bounds().Min.Y {
		y = r.Min.Y + labelMargin
	}
	overlay.Label(out, r.Min.X, y, text, guideColor, labelBG, 0.6)
}
