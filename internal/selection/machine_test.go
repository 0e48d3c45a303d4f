package selection

import (
	"image"
	"testing"
)

var canvas = image.Rect(0, 0, 800, 600)

func drag(m *Machine, from, to image.Point) {
	m.PointerDown(from)
	m.PointerMove(from.Add(to.Sub(from).Div(2)))
	m.PointerMove(to)
	m.PointerUp(to)
}

func TestCreate_NormalizesAnyDirection(t *testing.T) {
	tests := []struct {
		name     string
		from, to image.Point
	}{
		{"down-right", image.Pt(100, 100), image.Pt(300, 200)},
		{"up-left", image.Pt(300, 200), image.Pt(100, 100)},
		{"down-left", image.Pt(300, 100), image.Pt(100, 200)},
		{"up-right", image.Pt(100, 200), image.Pt(300, 100)},
	}
	want := image.Rect(100, 100, 300, 200)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(canvas, DefaultConfig)
			drag(m, tt.from, tt.to)
			got, ok := m.Region()
			if !ok || got != want {
				t.Errorf("region = %v (%v), want %v", got, ok, want)
			}
			if m.State() != Idle {
				t.Errorf("state after up = %s", m.State())
			}
		})
	}
}

func TestCreate_DiscardsShortDrags(t *testing.T) {
	tests := []struct {
		name string
		to   image.Point
		keep bool
	}{
		{"click", image.Pt(50, 50), false},
		{"tiny both axes", image.Pt(54, 53), false},
		{"long x only", image.Pt(80, 52), true},
		{"long y only", image.Pt(51, 90), true},
		{"zero height", image.Pt(120, 50), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(canvas, DefaultConfig)
			drag(m, image.Pt(50, 50), tt.to)
			_, ok := m.Region()
			if ok != tt.keep {
				t.Errorf("region kept = %v, want %v", ok, tt.keep)
			}
		})
	}
}

func TestCreate_ShortDragKeepsPreviousRegion(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))
	drag(m, image.Pt(500, 500), image.Pt(502, 501))

	got, ok := m.Region()
	if !ok || got != image.Rect(100, 100, 300, 200) {
		t.Errorf("region = %v (%v), want the earlier selection", got, ok)
	}
}

func TestHandleAt(t *testing.T) {
	m := New(canvas, Config{HandleRadius: 8})
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	tests := []struct {
		p    image.Point
		want Handle
	}{
		{image.Pt(100, 100), TopLeft},
		{image.Pt(105, 95), TopLeft},
		{image.Pt(200, 100), Top},
		{image.Pt(300, 100), TopRight},
		{image.Pt(300, 150), Right},
		{image.Pt(306, 205), BottomRight},
		{image.Pt(200, 200), Bottom},
		{image.Pt(100, 200), BottomLeft},
		{image.Pt(100, 150), Left},
		{image.Pt(106, 106), NoHandle}, // 6^2+6^2 = 72 > 64
		{image.Pt(200, 150), NoHandle},
	}
	for _, tt := range tests {
		if got := m.HandleAt(tt.p); got != tt.want {
			t.Errorf("HandleAt(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestResize_KeepsOppositeEdge(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	drag(m, image.Pt(300, 200), image.Pt(350, 260))
	if got, _ := m.Region(); got != image.Rect(100, 100, 350, 260) {
		t.Errorf("bottom-right resize = %v", got)
	}

	drag(m, image.Pt(100, 180), image.Pt(60, 10))
	if got, _ := m.Region(); got != image.Rect(60, 100, 350, 260) {
		t.Errorf("left resize = %v", got)
	}
}

func TestResize_ClampsAtMinimumSize(t *testing.T) {
	m := New(canvas, Config{MinSize: 10})
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	// drag the left edge far past the right edge
	m.PointerDown(image.Pt(100, 150))
	if m.State() != Resizing {
		t.Fatalf("state = %s, want resizing", m.State())
	}
	m.PointerMove(image.Pt(500, 150))
	got, _ := m.Region()
	if got != image.Rect(290, 100, 300, 200) {
		t.Errorf("clamped region = %v, want left edge pinned 10px before the right", got)
	}
	m.PointerUp(image.Pt(500, 150))

	// top edge past the bottom
	drag(m, image.Pt(295, 100), image.Pt(295, 400))
	got, _ = m.Region()
	if got.Dy() != 10 || got.Max.Y != 200 {
		t.Errorf("top clamp = %v", got)
	}
}

func TestResize_StaysOnCanvas(t *testing.T) {
	tests := []struct {
		name     string
		from, to image.Point
		grab     image.Point
		drop     image.Point
		want     image.Rectangle
	}{
		{"thin at right edge", image.Pt(794, 100), image.Pt(800, 200), image.Pt(800, 150), image.Pt(790, 150), image.Rect(794, 100, 800, 200)},
		{"thin at bottom edge", image.Pt(100, 594), image.Pt(300, 600), image.Pt(200, 600), image.Pt(200, 590), image.Rect(100, 594, 300, 600)},
		{"right handle dragged off canvas", image.Pt(700, 100), image.Pt(780, 200), image.Pt(780, 150), image.Pt(1200, 150), image.Rect(700, 100, 800, 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(canvas, DefaultConfig)
			drag(m, tt.from, tt.to)
			if got, _ := m.Region(); got != (image.Rectangle{Min: tt.from, Max: tt.to}) {
				t.Fatalf("created region = %v", got)
			}

			m.PointerDown(tt.grab)
			if m.State() != Resizing {
				t.Fatalf("state = %s, want resizing", m.State())
			}
			m.PointerMove(tt.drop)
			got, _ := m.Region()
			if !got.In(canvas) {
				t.Errorf("region %v left the canvas while resizing", got)
			}
			m.PointerUp(tt.drop)
			if got, _ := m.Region(); got != tt.want {
				t.Errorf("region = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMove_TranslatesAndClamps(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	drag(m, image.Pt(200, 150), image.Pt(250, 170))
	if got, _ := m.Region(); got != image.Rect(150, 120, 350, 220) {
		t.Errorf("moved region = %v", got)
	}

	drag(m, image.Pt(200, 150), image.Pt(2000, -500))
	got, _ := m.Region()
	if got != image.Rect(600, 0, 800, 100) {
		t.Errorf("clamped move = %v", got)
	}
}

func TestConfirm_FreezesRegion(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	r, ok := m.Confirm()
	if !ok || r != image.Rect(100, 100, 300, 200) {
		t.Fatalf("Confirm = %v, %v", r, ok)
	}

	if m.PointerDown(image.Pt(150, 150)) {
		t.Error("pointer down accepted after confirm")
	}
	drag(m, image.Pt(300, 200), image.Pt(700, 500))
	drag(m, image.Pt(10, 10), image.Pt(50, 50))
	if got, _ := m.Region(); got != r {
		t.Errorf("confirmed region changed to %v", got)
	}
}

func TestConfirm_WithoutRegion(t *testing.T) {
	m := New(canvas, DefaultConfig)
	if _, ok := m.Confirm(); ok {
		t.Error("Confirm succeeded with no region")
	}
	if m.Confirmed() {
		t.Error("machine marked confirmed")
	}
}

func TestDoubleClick(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))

	if _, ok := m.DoubleClick(image.Pt(500, 500)); ok {
		t.Error("double-click outside the region confirmed it")
	}
	r, ok := m.DoubleClick(image.Pt(200, 150))
	if !ok || r != image.Rect(100, 100, 300, 200) || !m.Confirmed() {
		t.Errorf("DoubleClick = %v, %v", r, ok)
	}
}

func TestReset(t *testing.T) {
	m := New(canvas, DefaultConfig)
	drag(m, image.Pt(100, 100), image.Pt(300, 200))
	m.Confirm()
	m.Reset()

	if _, ok := m.Region(); ok || m.Confirmed() || m.State() != Idle {
		t.Error("Reset left selection state behind")
	}
	drag(m, image.Pt(10, 10), image.Pt(60, 60))
	if got, ok := m.Region(); !ok || got != image.Rect(10, 10, 60, 60) {
		t.Errorf("region after reset = %v", got)
	}
}
