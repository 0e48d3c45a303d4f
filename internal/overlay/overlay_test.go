package overlay

import (
	"image"
	"image/color"
	"testing"
)

var red = color.RGBA{R: 255, A: 255}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	FillRect(img, img.Bounds(), color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
	return img
}

func TestFillRect_Opaque(t *testing.T) {
	img := blank(10, 10)
	FillRect(img, image.Rect(2, 2, 5, 5), red, 1)

	if got := img.RGBAAt(3, 3); got != red {
		t.Errorf("inside pixel = %v, want red", got)
	}
	if got := img.RGBAAt(6, 6); got.G != 255 {
		t.Errorf("outside pixel changed: %v", got)
	}
}

func TestFillRect_HalfOpacity(t *testing.T) {
	img := blank(4, 4)
	FillRect(img, img.Bounds(), color.RGBA{A: 255}, 0.5)

	got := img.RGBAAt(1, 1)
	if got.R < 126 || got.R > 129 || got.A != 255 {
		t.Errorf("expected mid grey, got %v", got)
	}
}

func TestLine_Endpoints(t *testing.T) {
	img := blank(20, 20)
	Line(img, image.Pt(1, 1), image.Pt(15, 9), red, 1)

	if img.RGBAAt(1, 1) != red || img.RGBAAt(15, 9) != red {
		t.Error("line should cover both endpoints")
	}
}

func TestLine_ClipsOutsideBounds(t *testing.T) {
	img := blank(10, 10)
	// Must not panic when the stroke leaves the canvas.
	Line(img, image.Pt(-5, -5), image.Pt(20, 20), red, 5)
	if img.RGBAAt(5, 5) != red {
		t.Error("visible part of the line was not drawn")
	}
}

func TestRectOutline(t *testing.T) {
	img := blank(20, 20)
	RectOutline(img, image.Rect(2, 2, 12, 8), red, 1)

	if img.RGBAAt(2, 2) != red || img.RGBAAt(11, 7) != red {
		t.Error("corners not stroked")
	}
	if img.RGBAAt(6, 5) == red {
		t.Error("interior should stay untouched")
	}
}

func TestDashedRect_HasGaps(t *testing.T) {
	img := blank(40, 10)
	DashedRect(img, image.Rect(0, 0, 40, 10), red, 1, 4)

	painted, gaps := 0, 0
	for x := 0; x < 40; x++ {
		if img.RGBAAt(x, 0) == red {
			painted++
		} else {
			gaps++
		}
	}
	if painted == 0 || gaps == 0 {
		t.Errorf("expected dashes and gaps, painted=%d gaps=%d", painted, gaps)
	}
}

func TestEllipse_StaysInsideRect(t *testing.T) {
	img := blank(40, 40)
	r := image.Rect(5, 10, 35, 30)
	Ellipse(img, r, red, 1)

	found := false
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if img.RGBAAt(x, y) != red {
				continue
			}
			found = true
			if !(image.Pt(x, y).In(r)) {
				t.Fatalf("ellipse pixel (%d,%d) outside %v", x, y, r)
			}
		}
	}
	if !found {
		t.Fatal("ellipse drew nothing")
	}
	if img.RGBAAt(20, 20) == red {
		t.Error("ellipse centre should be empty")
	}
}

func TestDrawText_TopAnchored(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	box := DrawText(img, 10, 20, "Hi", red, 2)

	if box.Min != image.Pt(10, 20) {
		t.Errorf("text box min = %v", box.Min)
	}
	size := MeasureText("Hi", 2)
	if box.Dx() != size.X || box.Dy() != size.Y {
		t.Errorf("box %v does not match measured size %v", box, size)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 100; x++ {
			if img.RGBAAt(x, y).A != 0 {
				t.Fatalf("pixel above the anchor was painted at (%d,%d)", x, y)
			}
		}
	}
}

func TestMeasureText_Multiline(t *testing.T) {
	one := MeasureText("abc", 1)
	two := MeasureText("abc\nabcdef", 1)
	if two.Y != 2*one.Y {
		t.Errorf("two lines height = %d, want %d", two.Y, 2*one.Y)
	}
	if two.X <= one.X {
		t.Errorf("widest line should set width, got %d", two.X)
	}
}

func TestDim_KeepsSelection(t *testing.T) {
	img := blank(20, 20)
	Dim(img, image.Rect(5, 5, 10, 10), 0.5)

	if img.RGBAAt(7, 7).R != 255 {
		t.Error("kept area should not be dimmed")
	}
	if img.RGBAAt(1, 1).R == 255 {
		t.Error("outside area should be dimmed")
	}
}

func TestClone_SubImage(t *testing.T) {
	img := blank(20, 20)
	FillRect(img, image.Rect(5, 5, 10, 10), red, 1)
	sub := img.SubImage(image.Rect(4, 4, 12, 12)).(*image.RGBA)

	c := Clone(sub)
	if c.Bounds() != sub.Bounds() {
		t.Fatalf("bounds = %v", c.Bounds())
	}
	if c.RGBAAt(6, 6) != red || c.RGBAAt(4, 4) == red {
		t.Error("clone pixels do not match source")
	}
	c.SetRGBA(6, 6, color.RGBA{})
	if img.RGBAAt(6, 6) != red {
		t.Error("clone shares memory with source")
	}
}

func TestFillTriangle_AxisAlignedBase(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c image.Point
		base    []image.Point
		inside  image.Point
	}{
		{
			"shared Y",
			image.Pt(20, 5), image.Pt(12, 20), image.Pt(28, 20),
			[]image.Point{{12, 20}, {20, 20}, {28, 20}},
			image.Pt(25, 18),
		},
		{
			"shared X",
			image.Pt(5, 20), image.Pt(20, 12), image.Pt(20, 28),
			[]image.Point{{20, 12}, {20, 20}, {20, 28}},
			image.Pt(18, 25),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := blank(40, 40)
			FillTriangle(img, tt.a, tt.b, tt.c, red)
			for _, p := range tt.base {
				if img.RGBAAt(p.X, p.Y) != red {
					t.Errorf("base pixel %v not painted", p)
				}
			}
			if img.RGBAAt(tt.inside.X, tt.inside.Y) != red {
				t.Errorf("interior pixel %v not painted", tt.inside)
			}
			if img.RGBAAt(1, 1) == red {
				t.Error("pixel outside the triangle was painted")
			}
		})
	}
}
