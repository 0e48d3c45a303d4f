package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// X11Backend captures the root window of an X11 (or XWayland) server. Displays
// come from RandR CRTCs; without RandR the whole root is one display.
type X11Backend struct {
	conn     *xgb.Conn
	root     xproto.Window
	screen   *xproto.ScreenInfo
	hasRandR bool
	mu       sync.Mutex
}

// NewX11Backend connects to $DISPLAY.
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	b := &X11Backend{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}

	log := logger.WithComponent("x11-capture")
	if err := randr.Init(conn); err != nil {
		log.Warn().Err(err).Msg("RandR extension not available, treating the root window as one display")
	} else {
		b.hasRandR = true
	}
	log.Debug().
		Uint16("width", screen.WidthInPixels).
		Uint16("height", screen.HeightInPixels).
		Uint8("depth", screen.RootDepth).
		Msg("Connected to X server")
	return b, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// Displays lists every CRTC driving a connected output.
func (b *X11Backend) Displays(ctx context.Context) ([]DisplayDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rootDisplay := []DisplayDescriptor{{
		Index:       0,
		Name:        "screen",
		Width:       int(b.screen.WidthInPixels),
		Height:      int(b.screen.HeightInPixels),
		ScaleFactor: 1,
		IsPrimary:   true,
	}}
	if !b.hasRandR {
		return rootDisplay, nil
	}

	displays, err := b.randrDisplays()
	if err != nil {
		logger.WithComponent("x11-capture").Warn().Err(err).Msg("RandR enumeration failed, using the root window")
		return rootDisplay, nil
	}
	if len(displays) == 0 {
		return rootDisplay, nil
	}
	return displays, nil
}

func (b *X11Backend) randrDisplays() ([]DisplayDescriptor, error) {
	res, err := randr.GetScreenResourcesCurrent(b.conn, b.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(b.conn, b.root).Reply(); err == nil {
		primary = reply.Output
	}

	seen := make(map[randr.Crtc]bool)
	var displays []DisplayDescriptor
	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(b.conn, output, res.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		if seen[info.Crtc] {
			// mirrored outputs share a CRTC
			continue
		}
		crtc, err := randr.GetCrtcInfo(b.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil || crtc.Width == 0 || crtc.Height == 0 {
			continue
		}
		seen[info.Crtc] = true
		displays = append(displays, DisplayDescriptor{
			Index:       len(displays),
			Name:        string(info.Name),
			X:           int(crtc.X),
			Y:           int(crtc.Y),
			Width:       int(crtc.Width),
			Height:      int(crtc.Height),
			ScaleFactor: 1,
			IsPrimary:   output == primary,
		})
	}
	return displays, nil
}

// Capture reads d's rectangle from the root window.
func (b *X11Backend) Capture(ctx context.Context, d DisplayDescriptor) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("capture %s: %w", d, apperrors.ErrDisplayNotFound)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	reply, err := xproto.GetImage(
		b.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(b.root),
		int16(d.X), int16(d.Y),
		uint16(d.Width), uint16(d.Height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return convertZPixmap(reply.Data, d.Width, d.Height, int(b.screen.RootDepth))
}

// convertZPixmap converts 24/32-bit BGRX scanlines to RGBA.
func convertZPixmap(data []byte, width, height, depth int) (*image.RGBA, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported root depth %d: %w", depth, apperrors.ErrInvalidImage)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short image data (%d bytes for %dx%d): %w", len(data), width, height, apperrors.ErrInvalidImage)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		s := data[i*4 : i*4+4]
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = s[2], s[1], s[0], 0xff
	}
	return img, nil
}
