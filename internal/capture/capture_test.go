package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

type fakeBackend struct {
	name       string
	displays   []DisplayDescriptor
	displayErr error
	captureErr error
	// scale shrinks captures, simulating a logical-size backend
	scale  int
	hang   bool
	fill   color.RGBA
	calls  int
	listed int
	closed bool
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBackend) Displays(context.Context) ([]DisplayDescriptor, error) {
	f.listed++
	return f.displays, f.displayErr
}

func (f *fakeBackend) Capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error) {
	f.calls++
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	scale := f.scale
	if scale == 0 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, d.Width/scale, d.Height/scale))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = f.fill.R, f.fill.G, f.fill.B, f.fill.A
	}
	return img, nil
}

var singleHD = []DisplayDescriptor{{Index: 0, Name: "eDP-1", Width: 1920, Height: 1080, ScaleFactor: 1, IsPrimary: true}}

func TestEnumerateDisplays(t *testing.T) {
	r := NewRouter(&fakeBackend{name: "x11", displays: singleHD}, nil, time.Second)
	displays, err := r.EnumerateDisplays(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(displays) != 1 {
		t.Fatalf("expected 1 display, got %d", len(displays))
	}
	d := displays[0]
	if d.Index != 0 || d.Width != 1920 || d.Height != 1080 || d.X != 0 || d.Y != 0 || !d.IsPrimary {
		t.Errorf("unexpected descriptor %+v", d)
	}
}

func TestEnumerateFallsBack(t *testing.T) {
	portal := &fakeBackend{name: "portal", displayErr: apperrors.ErrUnsupportedPlatform}
	generic := &fakeBackend{name: "generic", displays: singleHD}
	displays, err := NewRouter(portal, generic, time.Second).EnumerateDisplays(context.Background())
	if err != nil || len(displays) != 1 {
		t.Fatalf("expected fallback enumeration, got %v %v", displays, err)
	}
}

func TestEnumerateNoDisplays(t *testing.T) {
	_, err := NewRouter(&fakeBackend{name: "generic"}, nil, time.Second).EnumerateDisplays(context.Background())
	if !errors.Is(err, apperrors.ErrNoDisplayAvailable) {
		t.Fatalf("expected ErrNoDisplayAvailable, got %v", err)
	}
}

func TestCaptureDisplay(t *testing.T) {
	dual := []DisplayDescriptor{
		{Index: 0, Width: 192, Height: 108},
		{Index: 1, X: 192, Width: 256, Height: 144, IsPrimary: true},
	}
	cases := map[string]struct {
		index     int
		scale     int
		expectIdx int
		expectErr error
	}{
		"primary":        {index: PrimaryDisplay, expectIdx: 1},
		"by index":       {index: 0, expectIdx: 0},
		"logical size":   {index: 1, scale: 2, expectIdx: 1},
		"missing":        {index: 7, expectErr: apperrors.ErrDisplayNotFound},
		"negative index": {index: -3, expectErr: apperrors.ErrDisplayNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRouter(&fakeBackend{name: "fake", displays: dual, scale: tc.scale}, nil, time.Second)
			img, d, err := r.CaptureDisplay(context.Background(), tc.index)
			if tc.expectErr != nil {
				if !errors.Is(err, tc.expectErr) {
					t.Fatalf("expected %v, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.Index != tc.expectIdx {
				t.Fatalf("expected display %d, got %d", tc.expectIdx, d.Index)
			}
			if img.Bounds().Dx() != d.Width || img.Bounds().Dy() != d.Height {
				t.Errorf("raster %v does not match %dx%d", img.Bounds(), d.Width, d.Height)
			}
		})
	}
}

func TestCaptureFallsBack(t *testing.T) {
	preferred := &fakeBackend{name: "x11", displays: singleHD, captureErr: errors.New("BadMatch")}
	generic := &fakeBackend{name: "generic", displays: singleHD}
	img, _, err := NewRouter(preferred, generic, time.Second).CaptureDisplay(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if preferred.calls != 1 || generic.calls != 1 {
		t.Errorf("expected one call each, got %d and %d", preferred.calls, generic.calls)
	}
	if img.Bounds().Dx() != 1920 {
		t.Errorf("unexpected raster %v", img.Bounds())
	}
}

func TestCaptureTimeout(t *testing.T) {
	r := NewRouter(&fakeBackend{name: "hung", displays: singleHD, hang: true}, nil, 20*time.Millisecond)
	_, _, err := r.CaptureDisplay(context.Background(), 0)
	if !errors.Is(err, apperrors.ErrCaptureTimeout) {
		t.Fatalf("expected ErrCaptureTimeout, got %v", err)
	}
}

func TestCaptureTimeoutFallsBack(t *testing.T) {
	hung := &fakeBackend{name: "hung", displays: singleHD, hang: true}
	generic := &fakeBackend{name: "generic", displays: singleHD}
	if _, _, err := NewRouter(hung, generic, 20*time.Millisecond).CaptureDisplay(context.Background(), 0); err != nil {
		t.Fatalf("expected fallback after timeout, got %v", err)
	}
}

func TestCaptureCancelledDoesNotFallBack(t *testing.T) {
	preferred := &fakeBackend{name: "x11", displays: singleHD, hang: true}
	generic := &fakeBackend{name: "generic", displays: singleHD}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewRouter(preferred, generic, time.Second).CaptureDisplay(ctx, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if generic.calls != 0 {
		t.Error("a cancelled capture should not fall back")
	}
}

func TestUserRefusalDoesNotFallBack(t *testing.T) {
	refused := fmt.Errorf("Screenshot: %w", apperrors.ErrUserCancelled)
	cases := map[string]struct {
		preferred *fakeBackend
		run       func(r *Router) error
	}{
		"capture": {
			preferred: &fakeBackend{name: "portal", displays: singleHD, captureErr: refused},
			run: func(r *Router) error {
				_, _, err := r.CaptureDisplay(context.Background(), 0)
				return err
			},
		},
		"enumerate": {
			preferred: &fakeBackend{name: "portal", displayErr: refused},
			run: func(r *Router) error {
				_, err := r.EnumerateDisplays(context.Background())
				return err
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			generic := &fakeBackend{name: "generic", displays: singleHD}
			err := tc.run(NewRouter(tc.preferred, generic, time.Second))
			if !errors.Is(err, apperrors.ErrUserCancelled) {
				t.Fatalf("expected ErrUserCancelled, got %v", err)
			}
			if generic.calls != 0 || generic.listed != 0 {
				t.Errorf("generic backend used after the user refused: %d captures, %d listings", generic.calls, generic.listed)
			}
		})
	}
}

func TestCaptureAll(t *testing.T) {
	displays := []DisplayDescriptor{
		{Index: 0, Width: 100, Height: 50, IsPrimary: true},
		{Index: 1, X: 100, Y: 10, Width: 60, Height: 40},
	}
	red := color.RGBA{R: 255, A: 255}
	r := NewRouter(&fakeBackend{name: "fake", displays: displays, fill: red}, nil, time.Second)
	img, err := r.CaptureAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 160, 50) {
		t.Fatalf("expected 160x50 desktop, got %v", img.Bounds())
	}
	if img.RGBAAt(120, 20) != red {
		t.Error("second display not composited")
	}
	if img.RGBAAt(120, 5).A != 0 {
		t.Error("gap above the second display should be transparent")
	}
}

func TestConvertZPixmap(t *testing.T) {
	data := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	img, err := convertZPixmap(data, 2, 1, 24)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 3, G: 2, B: 1, A: 255}) {
		t.Errorf("unexpected first pixel %v", got)
	}
	if _, err := convertZPixmap(data, 2, 2, 24); !errors.Is(err, apperrors.ErrInvalidImage) {
		t.Errorf("short data should be rejected, got %v", err)
	}
	if _, err := convertZPixmap(data, 2, 1, 16); !errors.Is(err, apperrors.ErrInvalidImage) {
		t.Errorf("16-bit depth should be rejected, got %v", err)
	}
}

func TestRouterClose(t *testing.T) {
	a, b := &fakeBackend{name: "a"}, &fakeBackend{name: "b"}
	if err := NewRouter(a, b, 0).Close(); err != nil {
		t.Fatal(err)
	}
	if !a.closed || !b.closed {
		t.Error("both backends should be closed")
	}
}
