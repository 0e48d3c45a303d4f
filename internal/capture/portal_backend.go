package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/bryanchriswhite/focusshot/internal/effects"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
	"github.com/bryanchriswhite/focusshot/internal/portal"
)

// PortalBackend captures through org.freedesktop.portal.Screenshot, the only
// route on Wayland compositors. The portal always returns the whole desktop
// and cannot enumerate displays, so the Router asks the fallback for those.
type PortalBackend struct {
	mu     sync.Mutex
	portal *portal.Portal
	// Keep leaves the portal's image file on disk.
	Keep bool
}

// NewPortalBackend connects to the session bus.
func NewPortalBackend() (*PortalBackend, error) {
	p, err := portal.Connect()
	if err != nil {
		return nil, err
	}
	return &PortalBackend{portal: p}, nil
}

func (b *PortalBackend) Name() string {
	return "portal"
}

func (b *PortalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.portal.Close()
}

// Displays is not supported by the portal.
func (b *PortalBackend) Displays(context.Context) ([]DisplayDescriptor, error) {
	return nil, fmt.Errorf("portal cannot enumerate displays: %w", apperrors.ErrUnsupportedPlatform)
}

// Capture takes a non-interactive desktop screenshot and cuts d out of it.
func (b *PortalBackend) Capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.portal.Screenshot(ctx, false)
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("portal-capture")
	if !b.Keep {
		defer func() {
			if err := os.Remove(path); err != nil {
				log.Debug().Err(err).Str("path", path).Msg("Could not remove portal screenshot")
			}
		}()
	}

	desktop, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", path).
		Str("bounds", desktop.Bounds().String()).
		Msg("Portal screenshot received")

	if desktop.Bounds().Size() == image.Pt(d.Width, d.Height) {
		return desktop, nil
	}
	if r := d.Bounds().Intersect(desktop.Bounds()); !r.Empty() {
		return effects.Crop(desktop, r)
	}
	return desktop, nil
}

func decodeFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", path, err, apperrors.ErrInvalidImage)
	}
	return output.ToRGBA(img), nil
}
