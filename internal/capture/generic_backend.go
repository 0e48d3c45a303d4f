package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// GenericBackend uses github.com/kbinani/screenshot, which works on Linux,
// macOS and Windows. Display 0 is the primary display.
type GenericBackend struct{}

func NewGenericBackend() *GenericBackend {
	return &GenericBackend{}
}

func (b *GenericBackend) Name() string {
	return "generic"
}

func (b *GenericBackend) Close() error {
	return nil
}

func (b *GenericBackend) Displays(ctx context.Context) ([]DisplayDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, apperrors.ErrNoDisplayAvailable
	}
	displays := make([]DisplayDescriptor, 0, n)
	for i := 0; i < n; i++ {
		r := screenshot.GetDisplayBounds(i)
		displays = append(displays, DisplayDescriptor{
			Index:       i,
			Name:        fmt.Sprintf("display-%d", i),
			X:           r.Min.X,
			Y:           r.Min.Y,
			Width:       r.Dx(),
			Height:      r.Dy(),
			ScaleFactor: 1,
			IsPrimary:   i == 0,
		})
	}
	return displays, nil
}

func (b *GenericBackend) Capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(d.Bounds())
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", d, err)
	}
	if img.Bounds().Min != (image.Point{}) {
		img.Rect = img.Rect.Sub(img.Rect.Min)
	}
	return img, nil
}
