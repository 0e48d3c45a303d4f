// Package interaction is the editor side of a capture session: it receives
// the encoded capture, runs the selection gesture, then dispatches pointer and
// keyboard input to the active annotation tool.
//
// All state changes happen synchronously with the triggering event. The only
// exception is mosaic and blur, whose pixel work is handed to a worker pool;
// the result is folded back in before the next frame is produced.
package interaction

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/focusshot/internal/annotate"
	"github.com/bryanchriswhite/focusshot/internal/config"
	"github.com/bryanchriswhite/focusshot/internal/effects"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/event"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
	"github.com/bryanchriswhite/focusshot/internal/selection"
	"github.com/bryanchriswhite/focusshot/internal/worker"
)

// Host receives the terminal actions the editor cannot perform itself. The
// session manager implements it.
type Host interface {
	SaveImage(ctx context.Context, filename string) (string, error)
	CopyToClipboard(ctx context.Context) error
	CancelCapture() error
}

// Options configures a Controller.
type Options struct {
	Style        annotate.Style
	Selection    selection.Config
	Effects      annotate.EffectParams
	HistoryLimit int
	// Pool runs mosaic and blur off the input path. Nil commits synchronously.
	Pool *worker.Pool
}

// OptionsFromConfig builds Options from the editor config section.
func OptionsFromConfig(e config.EditorConfig) Options {
	style := annotate.DefaultStyle
	if c, err := config.ParseColor(e.StrokeColor); err == nil {
		style.StrokeColor = c
	}
	if e.StrokeWidth > 0 {
		style.StrokeWidth = e.StrokeWidth
	}
	if e.FontScale > 0 {
		style.FontScale = e.FontScale
	}
	params := annotate.DefaultEffectParams
	if e.BlurSigma > 0 {
		params.BlurSigma = e.BlurSigma
	}
	if e.Mosaic.Divisor > 0 {
		params.Mosaic = effects.BlockSizePolicy{
			Divisor: e.Mosaic.Divisor,
			Min:     e.Mosaic.MinBlock,
			Max:     e.Mosaic.MaxBlock,
		}
	}
	return Options{
		Style: style,
		Selection: selection.Config{
			HandleRadius: e.HandleRadius,
			MinSelection: e.MinSelection,
			MinSize:      e.MinSize,
		},
		Effects:      params,
		HistoryLimit: e.HistoryLimit,
	}
}

type textEntry struct {
	at  image.Point
	buf []rune
}

// Controller owns the per-session editor state.
type Controller struct {
	mu   sync.Mutex
	opts Options
	host Host
	log  *zerolog.Logger

	sessionID string
	raw       *image.RGBA
	sel       *selection.Machine
	doc       *annotate.Document
	tool      Tool

	dragging  bool
	dragStart image.Point
	dragCur   image.Point
	points    []image.Point

	text *textEntry

	// pending is set while a submitted effect job has not been drained.
	pending  bool
	inflight *annotate.Preview

	// stale marks a new or dropped image the view has not picked up yet.
	stale bool
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	if opts.Style.StrokeWidth <= 0 {
		opts.Style = annotate.DefaultStyle
	}
	if opts.Effects.BlurSigma <= 0 {
		opts.Effects = annotate.DefaultEffectParams
	}
	return &Controller{
		opts: opts,
		tool: DefaultTool,
		log:  logger.WithComponent("interaction"),
	}
}

// SetHost registers the receiver of save, copy and cancel actions. The
// controller never manages the host's lifetime.
func (c *Controller) SetHost(h Host) {
	c.mu.Lock()
	c.host = h
	c.mu.Unlock()
}

// Attach subscribes the controller to image.data and session.end on bus.
// The returned func detaches it.
func (c *Controller) Attach(bus *event.Bus) func() {
	ids := []string{
		bus.Subscribe(event.TypeImageData, func(e event.Event) {
			ev, ok := e.(event.ImageDataEvent)
			if !ok {
				return
			}
			if err := c.Accept(ev.SessionID, ev.EncodedImage); err != nil {
				c.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("Rejected capture image")
			}
		}),
		bus.Subscribe(event.TypeSessionEnd, func(e event.Event) {
			if ev, ok := e.(event.SessionEndEvent); ok {
				c.End(ev.SessionID)
			}
		}),
	}
	return func() {
		for _, id := range ids {
			bus.Unsubscribe(id)
		}
	}
}

// Accept decodes a data URI and starts editing it. A repeated session id is
// ignored; a new one fully resets the editor first.
func (c *Controller) Accept(sessionID, dataURI string) error {
	c.mu.Lock()
	same := c.raw != nil && sessionID == c.sessionID
	c.mu.Unlock()
	if same {
		return nil
	}
	img, err := output.DecodeDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("accept session %s: %w", sessionID, err)
	}
	return c.AcceptImage(sessionID, img)
}

// AcceptImage is Accept for an already decoded raster. The controller takes
// ownership of img.
func (c *Controller) AcceptImage(sessionID string, img *image.RGBA) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("accept session %s: %w", sessionID, apperrors.ErrInvalidImage)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw != nil && sessionID == c.sessionID {
		return nil
	}
	if c.sessionID != "" && sessionID != c.sessionID {
		c.log.Debug().
			Str("previous", c.sessionID).
			Str("session_id", sessionID).
			Msg("New session, resetting editor state")
	}
	c.resetLocked()
	c.sessionID = sessionID
	c.raw = img
	c.sel = selection.New(img.Bounds(), c.opts.Selection)
	c.stale = true
	return nil
}

// End drops the image of sessionID once the session is over.
func (c *Controller) End(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.resetLocked()
	c.stale = true
}

// resetLocked clears everything tied to the current image. A pending effect
// job stays pending so its stale result is drained and dropped later.
func (c *Controller) resetLocked() {
	c.raw = nil
	c.sel = nil
	c.doc = nil
	c.tool = DefaultTool
	c.dragging = false
	c.points = nil
	c.text = nil
	c.inflight = nil
}

// SessionID returns the id of the last accepted session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Tool returns the active tool.
func (c *Controller) Tool() Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tool
}

// SetTool switches tools, committing any open text entry.
func (c *Controller) SetTool(t Tool) bool {
	if !t.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitTextLocked()
	c.dragging = false
	c.tool = t
	return true
}

// HandlePointer feeds one pointer event. It reports whether a repaint is due.
func (c *Controller) HandlePointer(ev PointerEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.drainLocked()
	if c.raw == nil {
		return drained
	}
	p := ev.Point()

	if c.doc == nil {
		switch ev.Kind {
		case PointerDown:
			return c.sel.PointerDown(p) || drained
		case PointerMove:
			return c.sel.PointerMove(p) || drained
		case PointerUp:
			return c.sel.PointerUp(p) || drained
		case PointerDoubleClick:
			if r, ok := c.sel.DoubleClick(p); ok {
				return c.enterEditingLocked(r) || drained
			}
		}
		return drained
	}

	p = p.Sub(c.doc.Origin())
	switch ev.Kind {
	case PointerDown:
		if c.tool == ToolText {
			c.commitTextLocked()
			c.text = &textEntry{at: p}
			return true
		}
		c.dragging = true
		c.dragStart, c.dragCur = p, p
		c.points = []image.Point{p}
		return true
	case PointerMove:
		if !c.dragging {
			return drained
		}
		c.dragCur = p
		if c.tool == ToolFreehand && c.points[len(c.points)-1] != p {
			c.points = append(c.points, p)
		}
		return true
	case PointerUp:
		if !c.dragging {
			return drained
		}
		c.dragCur = p
		if c.tool == ToolFreehand && c.points[len(c.points)-1] != p {
			c.points = append(c.points, p)
		}
		c.dragging = false
		c.finishDragLocked()
		return true
	}
	return drained
}

// FocusLost commits an open text entry.
func (c *Controller) FocusLost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commitTextLocked()
}

type keyAction int

const (
	actionNone keyAction = iota
	actionSave
	actionCopy
	actionCancel
)

// HandleKey feeds one key press. Save, copy and cancel are forwarded to the
// host after the controller's lock is released.
func (c *Controller) HandleKey(ctx context.Context, ev KeyEvent) (bool, error) {
	c.mu.Lock()
	repaint, action := c.keyLocked(ev)
	host := c.host
	c.mu.Unlock()

	if action == actionNone {
		return repaint, nil
	}
	if host == nil {
		return repaint, apperrors.ErrNoActiveSession
	}
	switch action {
	case actionSave:
		path, err := host.SaveImage(ctx, "")
		if err == nil {
			c.log.Info().Str("path", path).Msg("Saved from editor")
		}
		return true, err
	case actionCopy:
		return true, host.CopyToClipboard(ctx)
	default:
		return true, host.CancelCapture()
	}
}

func (c *Controller) keyLocked(ev KeyEvent) (bool, keyAction) {
	drained := c.drainLocked()

	if ev.is(KeyEscape) {
		if c.text != nil {
			c.text = nil
			return true, actionNone
		}
		return true, actionCancel
	}
	if c.raw == nil {
		return drained, actionNone
	}

	if ev.Ctrl {
		switch c.lowerChar(ev) {
		case 'z':
			if c.doc == nil {
				return drained, actionNone
			}
			if ev.Shift {
				c.flushLocked()
				return c.doc.Revert() || drained, actionNone
			}
			_, ok := c.doc.Undo()
			return ok || drained, actionNone
		case 's':
			c.commitTextLocked()
			c.autoConfirmLocked()
			return true, actionSave
		case 'c':
			c.commitTextLocked()
			c.autoConfirmLocked()
			return true, actionCopy
		}
		return drained, actionNone
	}

	if ev.is(KeyEnter) {
		if c.text != nil {
			c.commitTextLocked()
			return true, actionNone
		}
		if c.doc == nil {
			if r, ok := c.sel.Confirm(); ok {
				return c.enterEditingLocked(r), actionNone
			}
		}
		return drained, actionNone
	}

	if c.text != nil {
		if ev.is(KeyBackspace) {
			if n := len(c.text.buf); n > 0 {
				c.text.buf = c.text.buf[:n-1]
			}
			return true, actionNone
		}
		if r := ev.char(); r >= ' ' {
			c.text.buf = append(c.text.buf, r)
			return true, actionNone
		}
		return drained, actionNone
	}

	if t, ok := ToolForDigit(ev.char()); ok {
		c.dragging = false
		c.tool = t
		return true, actionNone
	}
	return drained, actionNone
}

func (c *Controller) lowerChar(ev KeyEvent) rune {
	r := ev.char()
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	return r
}

// autoConfirmLocked finishes a pending selection so save and copy export it.
// With no selection at all the full capture is exported.
func (c *Controller) autoConfirmLocked() {
	if c.doc != nil || c.sel == nil {
		return
	}
	if r, ok := c.sel.Confirm(); ok {
		c.enterEditingLocked(r)
	}
}

func (c *Controller) enterEditingLocked(r image.Rectangle) bool {
	cropped, err := effects.Crop(c.raw, r)
	if err != nil {
		c.log.Warn().Err(err).Str("region", r.String()).Msg("Selection could not be cropped")
		c.sel.Reset()
		return true
	}
	doc, err := annotate.NewDocument(cropped, c.opts.HistoryLimit)
	if err != nil {
		c.log.Warn().Err(err).Msg("Could not open document")
		c.sel.Reset()
		return true
	}
	doc.SetOrigin(r.Min)
	c.doc = doc
	c.log.Debug().
		Str("session_id", c.sessionID).
		Str("region", r.String()).
		Msg("Selection confirmed")
	return true
}

func (c *Controller) finishDragLocked() {
	r := image.Rectangle{Min: c.dragStart, Max: c.dragCur}.Canon()
	minSel := c.opts.Selection.MinSelection
	if minSel <= 0 {
		minSel = selection.DefaultConfig.MinSelection
	}
	short := r.Dx() < minSel && r.Dy() < minSel
	points := c.points
	c.points = nil

	var err error
	switch c.tool {
	case ToolRectangle, ToolEllipse:
		if short {
			return
		}
		_, err = c.doc.Add(annotate.Annotation{Kind: c.tool.Kind(), Bounds: r, Style: c.opts.Style})
	case ToolArrow:
		if short {
			return
		}
		_, err = c.doc.Add(annotate.Annotation{
			Kind:   annotate.Arrow,
			Points: []image.Point{c.dragStart, c.dragCur},
			Style:  c.opts.Style,
		})
	case ToolFreehand:
		if len(points) < 2 {
			return
		}
		_, err = c.doc.Add(annotate.Annotation{Kind: annotate.FreehandStroke, Points: points, Style: c.opts.Style})
	case ToolMosaic, ToolBlur:
		if short {
			return
		}
		err = c.commitEffectLocked(annotate.Preview{EffectKind: c.tool.Kind(), Rect: r})
	case ToolCrop:
		r = r.Intersect(c.doc.Bounds())
		if short || r.Empty() {
			return
		}
		c.flushLocked()
		err = c.doc.Crop(r)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("tool", c.tool.String()).Msg("Commit failed")
	}
}

func (c *Controller) commitTextLocked() bool {
	if c.text == nil {
		return false
	}
	entry := c.text
	c.text = nil
	if len(entry.buf) == 0 || c.doc == nil {
		return true
	}
	_, err := c.doc.Add(annotate.Annotation{
		Kind:   annotate.Text,
		Bounds: image.Rectangle{Min: entry.at, Max: entry.at},
		Text:   string(entry.buf),
		Style:  c.opts.Style,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Text commit failed")
	}
	return true
}

// commitEffectLocked hands p to the pool, or applies it inline when there is
// no pool or the pool is taken.
func (c *Controller) commitEffectLocked(p annotate.Preview) error {
	p.Rect = p.Rect.Intersect(c.doc.Bounds())
	if p.Rect.Empty() {
		return nil
	}
	// Effects apply in order, so the previous one must land first.
	c.flushLocked()
	if pool := c.opts.Pool; pool != nil {
		if pool.Submit(worker.Job{
			Owner:   c.doc,
			Source:  c.doc.Image(),
			Preview: p,
			Params:  c.opts.Effects,
		}) {
			c.pending = true
			c.inflight = &p
			return nil
		}
		c.log.Debug().Msg("Effect pool busy, committing inline")
	}
	return c.doc.ApplyEffect(p, c.opts.Effects)
}

// Drain folds a finished effect into the document without blocking. It
// reports whether anything changed since the last call, including an image
// accepted or dropped in between, so a view polling Drain repaints once.
func (c *Controller) Drain() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	stale := c.stale
	c.stale = false
	return c.drainLocked() || stale
}

func (c *Controller) drainLocked() bool {
	if !c.pending {
		return false
	}
	select {
	case res := <-c.opts.Pool.Results():
		return c.applyResultLocked(res)
	default:
		return false
	}
}

// flushLocked waits for the outstanding effect, if any.
func (c *Controller) flushLocked() {
	if !c.pending {
		return
	}
	select {
	case res := <-c.opts.Pool.Results():
		c.applyResultLocked(res)
	case <-c.opts.Pool.Done():
		c.pending = false
		c.inflight = nil
	}
}

func (c *Controller) applyResultLocked(res worker.Result) bool {
	c.pending = false
	c.inflight = nil
	if doc, ok := res.Owner.(*annotate.Document); !ok || doc != c.doc || doc == nil {
		c.log.Debug().Msg("Dropped effect result from a previous document")
		return false
	}
	if res.Err != nil {
		c.log.Warn().Err(res.Err).Msg("Effect failed")
		return true
	}
	if err := c.doc.Commit(res.Committed); err != nil {
		c.log.Warn().Err(err).Msg("Effect commit failed")
		return true
	}
	c.log.Debug().
		Str("effect", res.Committed.EffectKind.String()).
		Dur("elapsed", res.Elapsed).
		Msg("Effect committed")
	return true
}

// Compose returns the raster to export for sessionID: the raw capture before
// a selection is confirmed, the flattened document after. The revision is
// zero for the raw capture and changes whenever the document does. The
// returned image must not be modified.
func (c *Controller) Compose(sessionID string) (*image.RGBA, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil || sessionID != c.sessionID {
		return nil, 0, false
	}
	c.flushLocked()
	if c.doc == nil {
		return c.raw, 0, true
	}
	return c.doc.Compose(), c.doc.Revision() + 1, true
}

// Region is a JSON-friendly rectangle.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func regionOf(r image.Rectangle) *Region {
	return &Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Snapshot describes the editor for status endpoints.
type Snapshot struct {
	SessionID      string  `json:"session_id,omitempty"`
	HasImage       bool    `json:"has_image"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	SelectionState string  `json:"selection_state,omitempty"`
	Selection      *Region `json:"selection,omitempty"`
	Confirmed      bool    `json:"confirmed"`
	Document       *Region `json:"document,omitempty"`
	Tool           string  `json:"tool"`
	Annotations    int     `json:"annotations"`
	Revision       uint64  `json:"revision"`
	HistoryDepth   int     `json:"history_depth"`
	EffectPending  bool    `json:"effect_pending"`
	TextEntry      bool    `json:"text_entry"`
}

// State returns a snapshot of the editor.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		SessionID:     c.sessionID,
		HasImage:      c.raw != nil,
		Tool:          c.tool.String(),
		EffectPending: c.pending,
		TextEntry:     c.text != nil,
	}
	if c.raw == nil {
		return s
	}
	s.Width, s.Height = c.raw.Bounds().Dx(), c.raw.Bounds().Dy()
	s.SelectionState = c.sel.State().String()
	if r, ok := c.sel.Region(); ok {
		s.Selection = regionOf(r)
	}
	if c.doc != nil {
		s.Confirmed = true
		s.Document = regionOf(c.doc.Bounds().Add(c.doc.Origin()))
		s.Annotations = c.doc.Len()
		s.Revision = c.doc.Revision()
		s.HistoryDepth = c.doc.HistoryDepth()
	}
	return s
}
