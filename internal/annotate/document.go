package annotate

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanchriswhite/focusshot/internal/effects"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/overlay"
)

// DefaultHistoryLimit bounds the number of Revert snapshots kept.
const DefaultHistoryLimit = 10

// EffectParams tunes destructive commits.
type EffectParams struct {
	Mosaic    effects.BlockSizePolicy
	BlurSigma float64
}

// DefaultEffectParams matches the editor defaults.
var DefaultEffectParams = EffectParams{
	Mosaic:    effects.DefaultBlockPolicy,
	BlurSigma: effects.DefaultBlurSigma,
}

type snapshot struct {
	image       *image.RGBA
	origin      image.Point
	annotations []Annotation
}

// Document is the WorkingImage plus its ordered annotation list.
//
// A published raster is never written again: every destructive edit builds a
// new raster and swaps the pointer under the lock, so a raster obtained from
// Image stays consistent for as long as the caller holds it. That also makes
// Revert snapshots free of pixel copies.
type Document struct {
	mu           sync.RWMutex
	image        *image.RGBA
	origin       image.Point
	annotations  []Annotation
	revision     uint64
	history      []snapshot
	historyLimit int
}

// NewDocument takes ownership of img. A historyLimit <= 0 uses DefaultHistoryLimit.
func NewDocument(img *image.RGBA, historyLimit int) (*Document, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("new document: %w", apperrors.ErrInvalidImage)
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if img.Bounds().Min != (image.Point{}) {
		img = overlay.Clone(img)
	}
	return &Document{image: img, historyLimit: historyLimit}, nil
}

// Image returns the current raster. It must be treated as read-only.
func (d *Document) Image() *image.RGBA {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.image
}

// Origin is where the WorkingImage's (0, 0) sits in capture coordinates.
// Crop moves it; Revert restores it.
func (d *Document) Origin() image.Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.origin
}

// SetOrigin places a fresh document in capture coordinates.
func (d *Document) SetOrigin(p image.Point) {
	d.mu.Lock()
	d.origin = p
	d.mu.Unlock()
}

// Bounds returns the bounds of the current raster.
func (d *Document) Bounds() image.Rectangle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.image.Bounds()
}

// Revision increases on every mutation.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Annotations returns a copy of the annotation list.
func (d *Document) Annotations() []Annotation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Annotation, len(d.annotations))
	copy(out, d.annotations)
	return out
}

// Len returns the number of annotations.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.annotations)
}

// Add appends a non-destructive annotation and assigns its ID.
func (d *Document) Add(a Annotation) (Annotation, error) {
	if a.Kind.Destructive() {
		return Annotation{}, fmt.Errorf("add %s: destructive kinds are committed, not listed", a.Kind)
	}
	switch a.Kind {
	case Arrow, FreehandStroke:
		if len(a.Points) < 2 {
			return Annotation{}, fmt.Errorf("add %s: need at least two points", a.Kind)
		}
		a.Points = append([]image.Point(nil), a.Points...)
		a.Bounds = pointBounds(a.Points)
	case Text:
		if a.Text == "" {
			return Annotation{}, fmt.Errorf("add text: empty text")
		}
		scale := a.Style.FontScale
		if scale <= 0 {
			scale = DefaultStyle.FontScale
		}
		size := overlay.MeasureText(a.Text, scale)
		a.Bounds = image.Rectangle{Min: a.Bounds.Min, Max: a.Bounds.Min.Add(size)}
	default:
		a.Bounds = a.Bounds.Canon()
		if a.Bounds.Empty() {
			return Annotation{}, fmt.Errorf("add %s: empty bounds", a.Kind)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	d.mu.Lock()
	d.annotations = append(d.annotations, a)
	d.revision++
	d.mu.Unlock()
	return a, nil
}

// Undo pops the last annotation. Pixels already committed are not restored.
func (d *Document) Undo() (Annotation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.annotations)
	if n == 0 {
		return Annotation{}, false
	}
	last := d.annotations[n-1]
	d.annotations = d.annotations[:n-1:n-1]
	d.revision++
	return last, true
}

// Revert restores the state from before the most recent destructive commit.
func (d *Document) Revert() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.history)
	if n == 0 {
		return false
	}
	s := d.history[n-1]
	d.history = d.history[:n-1]
	d.image = s.image
	d.origin = s.origin
	d.annotations = s.annotations
	d.revision++
	return true
}

// HistoryDepth returns how many Revert steps are available.
func (d *Document) HistoryDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.history)
}

// ComputeEffect renders the committed pixels for a destructive preview against
// src without touching it. It is safe to call off the interaction goroutine.
func ComputeEffect(src *image.RGBA, p Preview, params EffectParams) (Committed, error) {
	region := p.Rect.Canon().Intersect(src.Bounds())
	pixels, err := effects.Crop(src, region)
	if err != nil {
		return Committed{}, err
	}

	switch p.EffectKind {
	case MosaicPreview:
		err = effects.Mosaic(pixels, pixels.Bounds(), params.Mosaic)
	case BlurPreview:
		err = effects.Blur(pixels, pixels.Bounds(), params.BlurSigma)
	default:
		return Committed{}, fmt.Errorf("compute effect: %s has no pixel transform", p.EffectKind)
	}
	if err != nil {
		return Committed{}, err
	}
	return Committed{EffectKind: p.EffectKind, Rect: region, Pixels: pixels}, nil
}

// Commit bakes c into the WorkingImage. The annotation list is kept and is
// redrawn on top by Compose.
func (d *Document) Commit(c Committed) error {
	if c.Pixels == nil || c.Pixels.Bounds().Size() != c.Rect.Size() {
		return fmt.Errorf("commit %s: %w", c.EffectKind, apperrors.ErrInvalidImage)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !c.Rect.In(d.image.Bounds()) {
		return fmt.Errorf("commit %s %v outside %v: %w", c.EffectKind, c.Rect, d.image.Bounds(), apperrors.ErrInvalidImage)
	}

	next := overlay.Clone(d.image)
	draw.Draw(next, c.Rect, c.Pixels, image.Point{}, draw.Src)
	d.pushHistory()
	d.image = next
	d.revision++
	return nil
}

// ApplyEffect computes and commits p synchronously.
func (d *Document) ApplyEffect(p Preview, params EffectParams) error {
	c, err := ComputeEffect(d.Image(), p, params)
	if err != nil {
		return err
	}
	return d.Commit(c)
}

// Crop replaces the WorkingImage with r and clears every annotation.
func (d *Document) Crop(r image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r = r.Canon().Intersect(d.image.Bounds())
	next, err := effects.Crop(d.image, r)
	if err != nil {
		return err
	}
	d.pushHistory()
	d.image = next
	d.origin = d.origin.Add(r.Min)
	d.annotations = nil
	d.revision++
	return nil
}

// pushHistory must be called with d.mu held.
func (d *Document) pushHistory() {
	anns := make([]Annotation, len(d.annotations))
	copy(anns, d.annotations)
	d.history = append(d.history, snapshot{image: d.image, origin: d.origin, annotations: anns})
	if over := len(d.history) - d.historyLimit; over > 0 {
		d.history = append(d.history[:0:0], d.history[over:]...)
	}
}

// Compose flattens the annotations onto a copy of the WorkingImage.
func (d *Document) Compose() *image.RGBA {
	d.mu.RLock()
	img := d.image
	anns := make([]Annotation, len(d.annotations))
	copy(anns, d.annotations)
	d.mu.RUnlock()

	out := overlay.Clone(img)
	RenderAll(out, anns, image.Point{})
	return out
}

func pointBounds(pts []image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}
