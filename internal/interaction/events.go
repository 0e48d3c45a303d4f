package interaction

import (
	"fmt"
	"image"
	"strings"
)

// PointerKind distinguishes pointer events.
type PointerKind string

const (
	PointerDown        PointerKind = "down"
	PointerMove        PointerKind = "move"
	PointerUp          PointerKind = "up"
	PointerDoubleClick PointerKind = "double_click"
)

// PointerEvent carries canvas-space coordinates, already corrected for any
// window scale factor.
type PointerEvent struct {
	Kind PointerKind `json:"kind"`
	X    int         `json:"x"`
	Y    int         `json:"y"`
}

// Point returns the event position.
func (e PointerEvent) Point() image.Point {
	return image.Pt(e.X, e.Y)
}

// Named keys. Printable keys use their lower-case character.
const (
	KeyEscape    = "Escape"
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
)

// KeyEvent is a key press. Rune holds the typed character for printable
// keys, with shift already applied.
type KeyEvent struct {
	Key   string `json:"key"`
	Rune  rune   `json:"rune,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
}

// Input is the wire form accepted by the editor input endpoint: exactly one
// of Pointer and Key is set.
type Input struct {
	Pointer *PointerEvent `json:"pointer,omitempty"`
	Key     *KeyEvent     `json:"key,omitempty"`
}

// Validate rejects inputs that carry zero or two events.
func (in Input) Validate() error {
	switch {
	case in.Pointer == nil && in.Key == nil:
		return fmt.Errorf("input carries no event")
	case in.Pointer != nil && in.Key != nil:
		return fmt.Errorf("input carries both a pointer and a key event")
	case in.Pointer != nil:
		switch in.Pointer.Kind {
		case PointerDown, PointerMove, PointerUp, PointerDoubleClick:
		default:
			return fmt.Errorf("unknown pointer kind %q", in.Pointer.Kind)
		}
	case in.Key.Key == "" && in.Key.Rune == 0:
		return fmt.Errorf("key event has no key")
	}
	return nil
}

func (k KeyEvent) is(name string) bool {
	return strings.EqualFold(k.Key, name)
}

// char returns the printable character for a key, or 0.
func (k KeyEvent) char() rune {
	if k.Rune != 0 {
		return k.Rune
	}
	if r := []rune(k.Key); len(r) == 1 {
		return r[0]
	}
	return 0
}
