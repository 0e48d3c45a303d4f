package display

import (
	"context"
	"image"
	"strings"
	"time"
	"unicode"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/focusshot/internal/interaction"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// keyTimeout bounds the host call a key press may trigger (save, copy).
const keyTimeout = 2 * time.Minute

// pump reads X events until the connection is closed.
func (o *Overlay) pump() {
	defer close(o.done)
	log := logger.WithComponent("overlay")

	for {
		ev, err := o.conn.WaitForEvent()
		if ev == nil && err == nil {
			log.Debug().Msg("X connection closed, event pump stopped")
			return
		}
		if err != nil {
			log.Debug().Err(err).Msg("X11 event error")
			continue
		}
		if o.dispatch(ev) {
			o.repaint()
		}
	}
}

// dispatch translates one X event for the editor and reports whether the
// window needs repainting.
func (o *Overlay) dispatch(ev xgb.Event) bool {
	switch e := ev.(type) {
	case xproto.ExposeEvent:
		return e.Count == 0
	case xproto.ButtonPressEvent:
		if e.Detail != xproto.ButtonIndex1 {
			return false
		}
		p := o.canvas(e.EventX, e.EventY)
		kind := interaction.PointerDown
		o.mu.Lock()
		double := o.clicks.press(p, time.Now())
		o.mu.Unlock()
		if double {
			kind = interaction.PointerDoubleClick
		}
		return o.editor.HandlePointer(interaction.PointerEvent{Kind: kind, X: p.X, Y: p.Y})
	case xproto.MotionNotifyEvent:
		p := o.canvas(e.EventX, e.EventY)
		return o.editor.HandlePointer(interaction.PointerEvent{Kind: interaction.PointerMove, X: p.X, Y: p.Y})
	case xproto.ButtonReleaseEvent:
		if e.Detail != xproto.ButtonIndex1 {
			return false
		}
		p := o.canvas(e.EventX, e.EventY)
		return o.editor.HandlePointer(interaction.PointerEvent{Kind: interaction.PointerUp, X: p.X, Y: p.Y})
	case xproto.KeyPressEvent:
		shift := e.State&xproto.ModMaskShift != 0
		key, ok := translateKey(o.keys.lookup(e.Detail, shift), e.State)
		if !ok {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), keyTimeout)
		defer cancel()
		repaint, err := o.editor.HandleKey(ctx, key)
		if err != nil {
			logger.WithComponent("overlay").Debug().Err(err).Str("key", key.Key).Msg("Key action failed")
		}
		return repaint
	case xproto.FocusOutEvent:
		return o.editor.FocusLost()
	}
	return false
}

// refresh picks up background effect results while the window is shown.
func (o *Overlay) refresh() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			visible := o.visible
			o.mu.Unlock()
			if visible && o.editor.Drain() {
				o.repaint()
			}
		}
	}
}

// canvas maps window coordinates to the editor's raster, which may differ
// from the window size when the capture was rescaled.
func (o *Overlay) canvas(x, y int16) image.Point {
	o.mu.Lock()
	win, frame := o.bounds.Size(), o.frameSize
	o.mu.Unlock()
	if frame == (image.Point{}) {
		frame = win
	}
	return scalePoint(image.Pt(int(x), int(y)), win, frame)
}

func scalePoint(p, from, to image.Point) image.Point {
	if from == to || from.X == 0 || from.Y == 0 {
		return p
	}
	return image.Pt(p.X*to.X/from.X, p.Y*to.Y/from.Y)
}

// doubleClickInterval and doubleClickSlop follow common desktop defaults.
const (
	doubleClickInterval = 400 * time.Millisecond
	doubleClickSlop     = 4
)

type clickTracker struct {
	at    time.Time
	where image.Point
}

// press records a button press and reports whether it completes a double
// click. A double click resets the tracker so a third press starts over.
func (c *clickTracker) press(p image.Point, now time.Time) bool {
	d := p.Sub(c.where)
	double := !c.at.IsZero() &&
		now.Sub(c.at) <= doubleClickInterval &&
		abs(d.X) <= doubleClickSlop && abs(d.Y) <= doubleClickSlop
	if double {
		*c = clickTracker{}
		return true
	}
	c.at, c.where = now, p
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// keymap is the server's keycode to keysym table.
type keymap struct {
	min  xproto.Keycode
	per  int
	syms []xproto.Keysym
}

func loadKeymap(conn *xgb.Conn) (keymap, error) {
	setup := xproto.Setup(conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return keymap{}, err
	}
	return keymap{min: setup.MinKeycode, per: int(reply.KeysymsPerKeycode), syms: reply.Keysyms}, nil
}

// lookup returns the keysym for code, using the shifted column when shift is
// held and the key has one.
func (k keymap) lookup(code xproto.Keycode, shift bool) xproto.Keysym {
	if k.per == 0 || code < k.min {
		return 0
	}
	i := int(code-k.min) * k.per
	if i >= len(k.syms) {
		return 0
	}
	sym := k.syms[i]
	if shift && k.per > 1 && k.syms[i+1] != 0 {
		return k.syms[i+1]
	}
	if shift && sym >= 'a' && sym <= 'z' {
		return sym - 'a' + 'A'
	}
	return sym
}

const (
	keysymBackSpace = 0xff08
	keysymReturn    = 0xff0d
	keysymEscape    = 0xff1b
	keysymKPEnter   = 0xff8d
	keysymUnicode   = 0x01000000
)

// translateKey maps a keysym and modifier state to an editor key event.
// Modifier-only and function keys are dropped.
func translateKey(sym xproto.Keysym, state uint16) (interaction.KeyEvent, bool) {
	ev := interaction.KeyEvent{
		Ctrl:  state&xproto.ModMaskControl != 0,
		Shift: state&xproto.ModMaskShift != 0,
	}
	switch {
	case sym == keysymEscape:
		ev.Key = interaction.KeyEscape
	case sym == keysymReturn || sym == keysymKPEnter:
		ev.Key = interaction.KeyEnter
	case sym == keysymBackSpace:
		ev.Key = interaction.KeyBackspace
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		ev.Rune = rune(sym)
	case sym&0xff000000 == keysymUnicode:
		ev.Rune = rune(sym & 0x00ffffff)
	default:
		return ev, false
	}
	if ev.Rune != 0 {
		if !unicode.IsPrint(ev.Rune) {
			return ev, false
		}
		ev.Key = strings.ToLower(string(ev.Rune))
	}
	return ev, true
}
