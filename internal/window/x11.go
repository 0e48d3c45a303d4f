package window

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// X11Window is a top-level X11 client window located by WM_CLASS.
type X11Window struct {
	conn  *xgb.Conn
	root  xproto.Window
	id    xproto.Window
	class string
	atoms map[string]xproto.Atom
	mu    sync.Mutex
}

// FindX11 connects to the X server and returns the first client window whose
// WM_CLASS instance or class equals class (case-insensitive).
func FindX11(class string) (*X11Window, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	w := &X11Window{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		class: class,
		atoms: make(map[string]xproto.Atom),
	}

	id, err := w.find()
	if err != nil {
		conn.Close()
		return nil, err
	}
	w.id = id
	logger.WithComponent("x11-window").Info().
		Uint32("window", uint32(id)).
		Str("class", class).
		Msg("Host window found")
	return w, nil
}

// ID returns the X11 window id.
func (w *X11Window) ID() uint32 { return uint32(w.id) }

// Hide unmaps the window.
func (w *X11Window) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := xproto.UnmapWindowChecked(w.conn, w.id).Check(); err != nil {
		return fmt.Errorf("unmap window 0x%x: %w", uint32(w.id), err)
	}
	return nil
}

// Show maps the window again and raises it.
func (w *X11Window) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := xproto.MapWindowChecked(w.conn, w.id).Check(); err != nil {
		return fmt.Errorf("map window 0x%x: %w", uint32(w.id), err)
	}
	return xproto.ConfigureWindowChecked(w.conn, w.id,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// IsVisible reports whether the window is viewable.
func (w *X11Window) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	attrs, err := xproto.GetWindowAttributes(w.conn, w.id).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// Close releases the X connection. The window itself is left alone.
func (w *X11Window) Close() error {
	w.conn.Close()
	return nil
}

// find searches _NET_CLIENT_LIST first and falls back to the root's children
// on window managers without EWMH.
func (w *X11Window) find() (xproto.Window, error) {
	log := logger.WithComponent("x11-window")

	candidates, err := w.clientList()
	if err != nil || len(candidates) == 0 {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(w.conn, w.root).Reply()
		if err != nil {
			return 0, fmt.Errorf("query window tree: %w", err)
		}
		candidates = tree.Children
	}

	for _, win := range candidates {
		raw, err := w.property(win, "WM_CLASS")
		if err != nil {
			continue
		}
		if matchClass(raw, w.class) {
			return win, nil
		}
	}
	return 0, fmt.Errorf("no window with WM_CLASS %q among %d candidates", w.class, len(candidates))
}

func (w *X11Window) clientList() ([]xproto.Window, error) {
	atom, err := w.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(w.conn, false, w.root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}
	return decodeWindows(reply.Value), nil
}

func (w *X11Window) atom(name string) (xproto.Atom, error) {
	if a, ok := w.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(w.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	w.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (w *X11Window) property(win xproto.Window, name string) (string, error) {
	atom, err := w.atom(name)
	if err != nil {
		return "", err
	}
	reply, err := xproto.GetProperty(w.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", name)
	}
	return string(reply.Value), nil
}

// decodeWindows parses a CARD32 list of window ids.
func decodeWindows(value []byte) []xproto.Window {
	windows := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		windows = append(windows, xproto.Window(xgb.Get32(value[i:])))
	}
	return windows
}

// matchClass checks both halves of a raw WM_CLASS value ("instance\0class\0").
func matchClass(raw, class string) bool {
	for _, part := range strings.Split(raw, "\x00") {
		if part != "" && strings.EqualFold(part, class) {
			return true
		}
	}
	return false
}
