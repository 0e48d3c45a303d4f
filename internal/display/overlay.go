// Package display implements the full-screen X11 overlay window the editor
// runs in. The window is created once, hidden between sessions and moved in
// place for the next capture.
package display

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/focusshot/internal/capture"
	"github.com/bryanchriswhite/focusshot/internal/interaction"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Editor is the interaction layer driven by the window's events.
type Editor interface {
	HandlePointer(ev interaction.PointerEvent) bool
	HandleKey(ctx context.Context, ev interaction.KeyEvent) (bool, error)
	FocusLost() bool
	Drain() bool
	Frame() *image.RGBA
}

// refreshInterval paces effect-result polling while the window is shown.
const refreshInterval = 33 * time.Millisecond

// Overlay is an override-redirect window covering one display.
type Overlay struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext
	editor Editor
	keys   keymap

	mu     sync.Mutex
	bounds image.Rectangle
	// frameSize is the editor raster size at the last repaint
	frameSize image.Point
	visible   bool
	closed    bool
	clicks    clickTracker

	stop chan struct{}
	done chan struct{}
}

// NewOverlay opens an X connection and creates a hidden overlay covering d.
// Events are pumped to editor until Close.
func NewOverlay(d capture.DisplayDescriptor, editor Editor) (*Overlay, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	o := &Overlay{
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
		editor: editor,
		bounds: d.Bounds(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if err := o.create(); err != nil {
		conn.Close()
		return nil, err
	}
	if o.keys, err = loadKeymap(conn); err != nil {
		logger.WithComponent("overlay").Warn().Err(err).Msg("Keyboard mapping unavailable")
	}

	go o.pump()
	go o.refresh()
	return o, nil
}

func (o *Overlay) create() error {
	log := logger.WithComponent("overlay")

	id, err := xproto.NewWindowId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	o.window = id

	mask := uint32(xproto.CwBackPixel | xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		1,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify |
			xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
			xproto.EventMaskPointerMotion | xproto.EventMaskKeyPress |
			xproto.EventMaskFocusChange,
	}
	b := o.bounds
	err = xproto.CreateWindowChecked(
		o.conn,
		o.screen.RootDepth,
		o.window,
		o.screen.Root,
		int16(b.Min.X), int16(b.Min.Y),
		uint16(b.Dx()), uint16(b.Dy()),
		0,
		xproto.WindowClassInputOutput,
		o.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := o.setProperty("_NET_WM_NAME", "UTF8_STRING", "focusshot"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window title")
	}
	if err := o.setProperty("WM_CLASS", "STRING", "focusshot\x00FocusShot\x00"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window class")
	}

	gc, err := xproto.NewGcontextId(o.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(o.conn, gc, xproto.Drawable(o.window), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}
	o.gc = gc

	log.Debug().
		Uint32("window_id", uint32(o.window)).
		Str("bounds", b.String()).
		Msg("Overlay window created")
	return nil
}

// Place moves and resizes the window onto d.
func (o *Overlay) Place(d capture.DisplayDescriptor) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("overlay window closed")
	}
	b := d.Bounds()
	err := xproto.ConfigureWindowChecked(o.conn, o.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(b.Min.X)), uint32(int32(b.Min.Y)), uint32(b.Dx()), uint32(b.Dy())},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to move overlay: %w", err)
	}
	o.bounds = b
	return nil
}

// Show maps the window above everything, takes keyboard focus and paints the
// current frame.
func (o *Overlay) Show() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("overlay window closed")
	}
	if err := xproto.MapWindowChecked(o.conn, o.window).Check(); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to map window: %w", err)
	}
	xproto.ConfigureWindow(o.conn, o.window, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	xproto.SetInputFocus(o.conn, xproto.InputFocusParent, o.window, xproto.TimeCurrentTime)
	o.visible = true
	o.clicks = clickTracker{}
	o.mu.Unlock()

	o.repaint()
	return nil
}

// Hide unmaps the window, keeping it for the next session.
func (o *Overlay) Hide() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.visible = false
	if err := xproto.UnmapWindowChecked(o.conn, o.window).Check(); err != nil {
		return fmt.Errorf("failed to unmap window: %w", err)
	}
	return nil
}

// Close destroys the window and stops its event pump.
func (o *Overlay) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.visible = false
	close(o.stop)
	xproto.FreeGC(o.conn, o.gc)
	xproto.DestroyWindow(o.conn, o.window)
	o.conn.Sync()
	o.mu.Unlock()

	o.conn.Close()
	<-o.done
	logger.WithComponent("overlay").Debug().Msg("Overlay window closed")
	return nil
}

// WindowID returns the X11 window id.
func (o *Overlay) WindowID() uint32 {
	return uint32(o.window)
}

func (o *Overlay) setProperty(name, typeName, value string) error {
	atom, err := o.atom(name)
	if err != nil {
		return err
	}
	typ, err := o.atom(typeName)
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(o.conn, xproto.PropModeReplace, o.window,
		atom, typ, 8, uint32(len(value)), []byte(value)).Check()
}

func (o *Overlay) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(o.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
