package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/focusshot/internal/config"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 10 * time.Second

// PrimaryDisplay selects the primary display in CaptureDisplay.
const PrimaryDisplay = -1

// Router routes capture requests to the preferred backend and falls back to
// the generic one when it fails.
type Router struct {
	preferred Backend
	fallback  Backend
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewRouter creates a router. Either backend may be nil, not both. A zero
// timeout uses DefaultTimeout.
func NewRouter(preferred, fallback Backend, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if preferred == nil {
		preferred, fallback = fallback, nil
	}
	return &Router{preferred: preferred, fallback: fallback, timeout: timeout}
}

// Resolve picks the preferred backend for name ("auto", "x11", "portal",
// "generic") once at startup. The generic backend is always the fallback.
func Resolve(name string, timeout time.Duration) (*Router, error) {
	log := logger.WithComponent("capture-router")
	generic := NewGenericBackend()

	var preferred Backend
	switch name {
	case config.BackendGeneric:
	case config.BackendX11:
		x11, err := NewX11Backend()
		if err != nil {
			return nil, err
		}
		preferred = x11
	case config.BackendPortal:
		p, err := NewPortalBackend()
		if err != nil {
			return nil, err
		}
		preferred = p
	case config.BackendAuto, "":
		preferred = autoBackend()
	default:
		return nil, fmt.Errorf("unknown capture backend %q", name)
	}

	// with no preferred backend the generic one is promoted
	r := NewRouter(preferred, generic, timeout)
	log.Info().
		Str("preferred", r.preferred.Name()).
		Dur("timeout", r.timeout).
		Msg("Capture backend resolved")
	return r, nil
}

// autoBackend prefers the portal on Wayland sessions, where the XWayland root
// is not the real desktop, then X11. Nil means the generic backend alone.
func autoBackend() Backend {
	log := logger.WithComponent("capture-router")

	if os.Getenv("WAYLAND_DISPLAY") != "" {
		p, err := NewPortalBackend()
		if err == nil {
			return p
		}
		log.Warn().Err(err).Msg("Desktop portal not available")
	}
	if os.Getenv("DISPLAY") != "" {
		x11, err := NewX11Backend()
		if err == nil {
			return x11
		}
		log.Warn().Err(err).Msg("X11 capture not available")
	}
	return nil
}

// Name returns the preferred backend name.
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferred.Name()
}

// Close closes every backend.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, b := range []Backend{r.preferred, r.fallback} {
		if b != nil {
			errs = append(errs, b.Close())
		}
	}
	return apperrors.Join(errs...)
}

func (r *Router) backends() (Backend, Backend) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferred, r.fallback
}

// EnumerateDisplays lists the active displays.
func (r *Router) EnumerateDisplays(ctx context.Context) ([]DisplayDescriptor, error) {
	preferred, fallback := r.backends()
	log := logger.WithComponent("capture-router")

	displays, err := withTimeout(ctx, r.timeout, preferred.Displays)
	if shouldFallBack(ctx, err, fallback) {
		log.Debug().Err(err).Str("backend", preferred.Name()).Msg("Enumerating displays with fallback backend")
		displays, err = withTimeout(ctx, r.timeout, fallback.Displays)
	}
	if err != nil {
		return nil, apperrors.Wrap("enumerate displays", err)
	}
	if len(displays) == 0 {
		return nil, apperrors.Wrap("enumerate displays", apperrors.ErrNoDisplayAvailable)
	}
	return displays, nil
}

// Display resolves index (PrimaryDisplay for the primary) to a descriptor.
func (r *Router) Display(ctx context.Context, index int) (DisplayDescriptor, error) {
	displays, err := r.EnumerateDisplays(ctx)
	if err != nil {
		return DisplayDescriptor{}, err
	}
	return pick(displays, index)
}

func pick(displays []DisplayDescriptor, index int) (DisplayDescriptor, error) {
	if index == PrimaryDisplay {
		d, _ := Primary(displays)
		return d, nil
	}
	for _, d := range displays {
		if d.Index == index {
			return d, nil
		}
	}
	return DisplayDescriptor{}, apperrors.Wrapf("capture display", apperrors.ErrDisplayNotFound, "index %d of %d", index, len(displays))
}

// CaptureDisplay captures one display at its physical resolution.
func (r *Router) CaptureDisplay(ctx context.Context, index int) (*image.RGBA, DisplayDescriptor, error) {
	d, err := r.Display(ctx, index)
	if err != nil {
		return nil, d, err
	}
	img, err := r.capture(ctx, d)
	return img, d, err
}

// CaptureAll composites every display into one raster spanning the virtual
// desktop. Gaps between displays stay transparent.
func (r *Router) CaptureAll(ctx context.Context) (*image.RGBA, error) {
	displays, err := r.EnumerateDisplays(ctx)
	if err != nil {
		return nil, err
	}
	bounds := VirtualBounds(displays)
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for _, d := range displays {
		img, err := r.capture(ctx, d)
		if err != nil {
			return nil, err
		}
		at := d.Bounds().Sub(bounds.Min)
		draw.Draw(out, at, img, img.Bounds().Min, draw.Src)
	}
	return out, nil
}

func (r *Router) capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error) {
	preferred, fallback := r.backends()
	log := logger.WithComponent("capture-router")

	call := func(ctx context.Context) (*image.RGBA, error) { return preferred.Capture(ctx, d) }
	img, err := withTimeout(ctx, r.timeout, call)
	if shouldFallBack(ctx, err, fallback) {
		log.Warn().
			Err(err).
			Str("backend", preferred.Name()).
			Str("fallback", fallback.Name()).
			Int("display", d.Index).
			Msg("Capture failed, falling back")
		call = func(ctx context.Context) (*image.RGBA, error) { return fallback.Capture(ctx, d) }
		img, err = withTimeout(ctx, r.timeout, call)
	}
	if err != nil {
		return nil, apperrors.Wrap(fmt.Sprintf("capture display %d", d.Index), err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, apperrors.Wrapf("capture", apperrors.ErrInvalidImage, "empty raster for display %d", d.Index)
	}
	return physical(img, d), nil
}

// shouldFallBack reports whether a failed preferred call may be retried on the
// fallback backend. A refusal by the user, such as a dismissed portal prompt,
// is final.
func shouldFallBack(ctx context.Context, err error, fallback Backend) bool {
	return err != nil && fallback != nil && ctx.Err() == nil && !apperrors.IsCancellation(err)
}

// physical rescales a logical-size capture to the display's pixel size.
func physical(img *image.RGBA, d DisplayDescriptor) *image.RGBA {
	want := image.Rect(0, 0, d.Width, d.Height)
	if img.Bounds().Size() == want.Size() || want.Empty() {
		return img
	}
	logger.WithComponent("capture-router").Debug().
		Str("captured", img.Bounds().String()).
		Str("display", d.String()).
		Msg("Rescaling capture to physical resolution")
	out := image.NewRGBA(want)
	draw.CatmullRom.Scale(out, want, img, img.Bounds(), draw.Src, nil)
	return out
}

// withTimeout runs fn under timeout. A hung backend call is abandoned, not
// interrupted: its goroutine finishes in the background.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("after %s: %w", timeout, apperrors.ErrCaptureTimeout)
		}
		return zero, ctx.Err()
	}
}
