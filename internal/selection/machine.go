// Package selection implements the pointer-driven rectangle selection used
// before the editor switches to annotation tools.
package selection

import (
	"image"
)

// State of the selection gesture.
type State int

const (
	Idle State = iota
	Creating
	Moving
	Resizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	}
	return "unknown"
}

// Handle is one of the eight resize hotspots on a region border.
type Handle int

const (
	NoHandle Handle = iota
	TopLeft
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
)

// Config holds the gesture thresholds, in canvas pixels.
type Config struct {
	// HandleRadius is the hit-test radius around each handle.
	HandleRadius int
	// MinSelection discards drags shorter than this on both axes.
	MinSelection int
	// MinSize is the smallest width or height a resize may produce.
	MinSize int
}

// DefaultConfig matches the editor defaults.
var DefaultConfig = Config{HandleRadius: 8, MinSelection: 5, MinSize: 10}

// Machine tracks one selection over a fixed canvas.
type Machine struct {
	cfg    Config
	bounds image.Rectangle

	state     State
	region    image.Rectangle
	hasRegion bool
	confirmed bool

	anchor image.Point
	last   image.Point
	origin image.Rectangle
	hadOld bool
	handle Handle
}

// New creates a machine for a canvas. Zero fields in cfg take defaults.
func New(bounds image.Rectangle, cfg Config) *Machine {
	if cfg.HandleRadius <= 0 {
		cfg.HandleRadius = DefaultConfig.HandleRadius
	}
	if cfg.MinSelection <= 0 {
		cfg.MinSelection = DefaultConfig.MinSelection
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultConfig.MinSize
	}
	return &Machine{cfg: cfg, bounds: bounds.Canon()}
}

func (m *Machine) State() State { return m.state }

// Region returns the current selection, if any.
func (m *Machine) Region() (image.Rectangle, bool) {
	return m.region, m.hasRegion
}

// Confirmed reports whether the selection is final.
func (m *Machine) Confirmed() bool { return m.confirmed }

// Reset drops the selection and any gesture in progress.
func (m *Machine) Reset() {
	cfg, bounds := m.cfg, m.bounds
	*m = Machine{cfg: cfg, bounds: bounds}
}

// Handles returns the handle centres of the current region, indexed by
// Handle-1.
func (m *Machine) Handles() [8]image.Point {
	return handlePoints(m.region)
}

func handlePoints(r image.Rectangle) [8]image.Point {
	midX := (r.Min.X + r.Max.X) / 2
	midY := (r.Min.Y + r.Max.Y) / 2
	return [8]image.Point{
		TopLeft - 1:     r.Min,
		Top - 1:         {midX, r.Min.Y},
		TopRight - 1:    {r.Max.X, r.Min.Y},
		Right - 1:       {r.Max.X, midY},
		BottomRight - 1: r.Max,
		Bottom - 1:      {midX, r.Max.Y},
		BottomLeft - 1:  {r.Min.X, r.Max.Y},
		Left - 1:        {r.Min.X, midY},
	}
}

// HandleAt returns the closest handle within HandleRadius of p.
func (m *Machine) HandleAt(p image.Point) Handle {
	if !m.hasRegion {
		return NoHandle
	}
	limit := m.cfg.HandleRadius * m.cfg.HandleRadius
	best, bestDist := NoHandle, limit+1
	for i, h := range m.Handles() {
		dx, dy := p.X-h.X, p.Y-h.Y
		if d := dx*dx + dy*dy; d <= limit && d < bestDist {
			best, bestDist = Handle(i+1), d
		}
	}
	return best
}

// PointerDown starts a gesture. It reports whether the view needs a repaint.
func (m *Machine) PointerDown(p image.Point) bool {
	if m.confirmed || m.state != Idle {
		return false
	}
	p = clampPoint(p, m.bounds)
	m.anchor = p
	m.last = p
	m.origin = m.region
	m.hadOld = m.hasRegion

	if h := m.HandleAt(p); h != NoHandle {
		m.state = Resizing
		m.handle = h
		return true
	}
	if m.hasRegion && p.In(m.region) {
		m.state = Moving
		return true
	}
	m.state = Creating
	m.region = image.Rectangle{Min: p, Max: p}
	m.hasRegion = true
	return true
}

// PointerMove updates the gesture in progress.
func (m *Machine) PointerMove(p image.Point) bool {
	if m.state != Idle {
		m.last = p
	}
	switch m.state {
	case Creating:
		p = clampPoint(p, m.bounds)
		m.region = image.Rectangle{Min: m.anchor, Max: p}.Canon()
	case Moving:
		m.region = m.moved(p.Sub(m.anchor))
	case Resizing:
		m.region = m.resized(p.Sub(m.anchor))
	default:
		return false
	}
	return true
}

// PointerUp ends the gesture. A drag shorter than MinSelection on both axes,
// or one with zero area, is discarded and the previous region is restored.
func (m *Machine) PointerUp(p image.Point) bool {
	if m.state == Idle {
		return false
	}
	m.PointerMove(p)
	if m.state == Creating {
		d := clampPoint(p, m.bounds).Sub(m.anchor)
		tooShort := abs(d.X) < m.cfg.MinSelection && abs(d.Y) < m.cfg.MinSelection
		if tooShort || m.region.Empty() {
			m.region, m.hasRegion = m.origin, m.hadOld
		}
	}
	m.state = Idle
	m.handle = NoHandle
	return true
}

// Confirm freezes the current region. After Confirm the region never changes.
func (m *Machine) Confirm() (image.Rectangle, bool) {
	if m.confirmed {
		return m.region, true
	}
	if m.state != Idle {
		m.PointerUp(m.last)
	}
	if !m.hasRegion || m.region.Empty() {
		return image.Rectangle{}, false
	}
	m.confirmed = true
	return m.region, true
}

// DoubleClick confirms the region when p falls inside it.
func (m *Machine) DoubleClick(p image.Point) (image.Rectangle, bool) {
	if m.confirmed {
		return m.region, true
	}
	if !m.hasRegion || !p.In(m.region) {
		return image.Rectangle{}, false
	}
	m.state = Idle
	return m.Confirm()
}

func (m *Machine) moved(delta image.Point) image.Rectangle {
	r := m.origin.Add(delta)
	if r.Min.X < m.bounds.Min.X {
		r = r.Add(image.Pt(m.bounds.Min.X-r.Min.X, 0))
	}
	if r.Min.Y < m.bounds.Min.Y {
		r = r.Add(image.Pt(0, m.bounds.Min.Y-r.Min.Y))
	}
	if r.Max.X > m.bounds.Max.X {
		r = r.Sub(image.Pt(r.Max.X-m.bounds.Max.X, 0))
	}
	if r.Max.Y > m.bounds.Max.Y {
		r = r.Sub(image.Pt(0, r.Max.Y-m.bounds.Max.Y))
	}
	return r
}

// resized moves the edges named by the active handle and keeps the opposite
// edges fixed. The moving edge stops MinSize short of the fixed one, but never
// leaves the canvas, so a region already thinner than MinSize at the canvas
// edge stays as it is.
func (m *Machine) resized(delta image.Point) image.Rectangle {
	r := m.origin
	minSize := m.cfg.MinSize

	if movesLeft(m.handle) {
		r.Min.X = clampInt(r.Min.X+delta.X, m.bounds.Min.X, r.Max.X-minSize)
	}
	if movesRight(m.handle) {
		r.Max.X = clampInt(r.Max.X+delta.X, r.Min.X+minSize, m.bounds.Max.X)
	}
	if movesTop(m.handle) {
		r.Min.Y = clampInt(r.Min.Y+delta.Y, m.bounds.Min.Y, r.Max.Y-minSize)
	}
	if movesBottom(m.handle) {
		r.Max.Y = clampInt(r.Max.Y+delta.Y, r.Min.Y+minSize, m.bounds.Max.Y)
	}
	return r.Intersect(m.bounds)
}

func movesLeft(h Handle) bool   { return h == TopLeft || h == Left || h == BottomLeft }
func movesRight(h Handle) bool  { return h == TopRight || h == Right || h == BottomRight }
func movesTop(h Handle) bool    { return h == TopLeft || h == Top || h == TopRight }
func movesBottom(h Handle) bool { return h == BottomLeft || h == Bottom || h == BottomRight }

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampPoint(p image.Point, r image.Rectangle) image.Point {
	return image.Pt(clampInt(p.X, r.Min.X, r.Max.X), clampInt(p.Y, r.Min.Y, r.Max.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
