package display

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/focusshot/internal/interaction"
)

func TestEncodeZPixmap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetRGBA(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 128})

	cases := map[string]struct {
		format       pixmapFormat
		expectStride int
		expectFirst  []byte
	}{
		"depth 24 at 32bpp": {pixmapFormat{24, 32, 32}, 12, []byte{30, 20, 10, 0}},
		"depth 32":          {pixmapFormat{32, 32, 32}, 12, []byte{30, 20, 10, 255}},
		"packed 24bpp":      {pixmapFormat{24, 24, 32}, 12, []byte{30, 20, 10}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data, stride, err := encodeZPixmap(img, tc.format)
			if err != nil {
				t.Fatal(err)
			}
			if stride != tc.expectStride {
				t.Fatalf("expected stride %d, got %d", tc.expectStride, stride)
			}
			if len(data) != stride*2 {
				t.Fatalf("expected %d bytes, got %d", stride*2, len(data))
			}
			for i, b := range tc.expectFirst {
				if data[i] != b {
					t.Errorf("byte %d: expected %d, got %d", i, b, data[i])
				}
			}
		})
	}

	if _, _, err := encodeZPixmap(img, pixmapFormat{16, 16, 32}); err == nil {
		t.Error("16bpp should be rejected")
	}
}

func TestEncodeZPixmapSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 3, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	sub := img.SubImage(image.Rect(2, 3, 4, 4)).(*image.RGBA)
	data, _, err := encodeZPixmap(sub, pixmapFormat{24, 32, 32})
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 7 || data[1] != 8 || data[2] != 9 {
		t.Errorf("sub-image origin not honoured: %v", data[:4])
	}
}

func TestStripRows(t *testing.T) {
	if got := stripRows(7680, 262116); got != 34 {
		t.Errorf("expected 34 rows, got %d", got)
	}
	if got := stripRows(0, 100); got != 0 {
		t.Errorf("expected 0 for empty stride, got %d", got)
	}
}

func TestTranslateKey(t *testing.T) {
	cases := []struct {
		name   string
		sym    xproto.Keysym
		state  uint16
		expect interaction.KeyEvent
		ok     bool
	}{
		{"escape", keysymEscape, 0, interaction.KeyEvent{Key: interaction.KeyEscape}, true},
		{"keypad enter", keysymKPEnter, 0, interaction.KeyEvent{Key: interaction.KeyEnter}, true},
		{"backspace", keysymBackSpace, 0, interaction.KeyEvent{Key: interaction.KeyBackspace}, true},
		{"digit", '3', 0, interaction.KeyEvent{Key: "3", Rune: '3'}, true},
		{"ctrl z", 'z', xproto.ModMaskControl, interaction.KeyEvent{Key: "z", Rune: 'z', Ctrl: true}, true},
		{"ctrl shift z", 'Z', xproto.ModMaskControl | xproto.ModMaskShift,
			interaction.KeyEvent{Key: "z", Rune: 'Z', Ctrl: true, Shift: true}, true},
		{"latin1", 0xe9, 0, interaction.KeyEvent{Key: "é", Rune: 'é'}, true},
		{"unicode keysym", keysymUnicode | 0x20ac, 0, interaction.KeyEvent{Key: "€", Rune: '€'}, true},
		{"shift key", 0xffe1, xproto.ModMaskShift, interaction.KeyEvent{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := translateKey(tc.sym, tc.state)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got != tc.expect {
				t.Errorf("expected %+v, got %+v", tc.expect, got)
			}
		})
	}
}

func TestKeymapLookup(t *testing.T) {
	k := keymap{min: 8, per: 2, syms: []xproto.Keysym{'a', 'A', '1', '!', 'q', 0}}
	cases := []struct {
		code   xproto.Keycode
		shift  bool
		expect xproto.Keysym
	}{
		{8, false, 'a'},
		{8, true, 'A'},
		{9, true, '!'},
		{10, true, 'Q'},
		{11, false, 0},
		{3, false, 0},
	}
	for _, tc := range cases {
		if got := k.lookup(tc.code, tc.shift); got != tc.expect {
			t.Errorf("lookup(%d, %v) = %q, expected %q", tc.code, tc.shift, got, tc.expect)
		}
	}
}

func TestClickTracker(t *testing.T) {
	var c clickTracker
	now := time.Unix(100, 0)
	if c.press(image.Pt(10, 10), now) {
		t.Fatal("first press is not a double click")
	}
	if !c.press(image.Pt(12, 11), now.Add(200*time.Millisecond)) {
		t.Fatal("second nearby press should be a double click")
	}
	if c.press(image.Pt(12, 11), now.Add(300*time.Millisecond)) {
		t.Fatal("third press starts over")
	}
	if c.press(image.Pt(12, 11), now.Add(time.Second)) {
		t.Fatal("slow press is not a double click")
	}
	if c.press(image.Pt(40, 40), now.Add(1100*time.Millisecond)) {
		t.Fatal("distant press is not a double click")
	}
}

func TestScalePoint(t *testing.T) {
	cases := []struct {
		p, from, to, expect image.Point
	}{
		{image.Pt(100, 50), image.Pt(1280, 720), image.Pt(2560, 1440), image.Pt(200, 100)},
		{image.Pt(100, 50), image.Pt(1920, 1080), image.Pt(1920, 1080), image.Pt(100, 50)},
		{image.Pt(100, 50), image.Point{}, image.Pt(10, 10), image.Pt(100, 50)},
	}
	for _, tc := range cases {
		if got := scalePoint(tc.p, tc.from, tc.to); got != tc.expect {
			t.Errorf("scalePoint(%v, %v, %v) = %v", tc.p, tc.from, tc.to, got)
		}
	}
}
